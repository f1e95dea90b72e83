// Package mock provides a test double for the voice.Synthesizer interface.
//
// Use Synthesizer to feed controlled audio chunks to consumers and to verify
// which Profile and text fragments reach the backend:
//
//	s := &mock.Synthesizer{
//	    SynthesizeChunks: [][]byte{[]byte("audio1"), []byte("audio2")},
//	    ListVoicesResult: []voice.Profile{{ID: "v1", Name: "Narrator"}},
//	}
//	ch, _ := s.SynthesizeStream(ctx, textCh, profile)
package mock

import (
	"context"
	"sync"

	"github.com/LiorLearning/social-story/pkg/voice"
)

// SynthesizeStreamCall records a single invocation of SynthesizeStream.
type SynthesizeStreamCall struct {
	// Ctx is the context passed to SynthesizeStream.
	Ctx context.Context
	// Text is the text input channel passed to SynthesizeStream.
	Text <-chan string
	// Profile is the voice profile passed to SynthesizeStream.
	Profile voice.Profile
}

// Synthesizer is a mock implementation of voice.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// SynthesizeChunks is the sequence of audio byte slices emitted on the
	// channel returned by SynthesizeStream.
	SynthesizeChunks [][]byte

	// SynthesizeErr, if non-nil, is returned as the error from
	// SynthesizeStream instead of starting a channel.
	SynthesizeErr error

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []voice.Profile

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// SynthesizeStreamCalls records every call to SynthesizeStream in order.
	SynthesizeStreamCalls []SynthesizeStreamCall

	// ListVoicesCalls counts calls to ListVoices.
	ListVoicesCalls int
}

// Compile-time interface assertion.
var _ voice.Synthesizer = (*Synthesizer)(nil)

// SynthesizeStream records the call and, if SynthesizeErr is nil, returns a
// channel that emits SynthesizeChunks then closes.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, text <-chan string, profile voice.Profile) (<-chan []byte, error) {
	s.mu.Lock()
	s.SynthesizeStreamCalls = append(s.SynthesizeStreamCalls, SynthesizeStreamCall{Ctx: ctx, Text: text, Profile: profile})
	if s.SynthesizeErr != nil {
		err := s.SynthesizeErr
		s.mu.Unlock()
		return nil, err
	}
	chunks := make([][]byte, len(s.SynthesizeChunks))
	copy(chunks, s.SynthesizeChunks)
	s.mu.Unlock()

	ch := make(chan []byte, len(chunks))
	go func() {
		defer close(ch)
		// Drain the incoming text channel so the caller's writer never blocks.
		go func() {
			for range text {
			}
		}()
		for _, audio := range chunks {
			select {
			case <-ctx.Done():
				return
			case ch <- audio:
			}
		}
	}()
	return ch, nil
}

// ListVoices records the call and returns ListVoicesResult, ListVoicesErr.
func (s *Synthesizer) ListVoices(context.Context) ([]voice.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListVoicesCalls++
	return s.ListVoicesResult, s.ListVoicesErr
}

// Calls returns a copy of the recorded SynthesizeStream calls.
func (s *Synthesizer) Calls() []SynthesizeStreamCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SynthesizeStreamCall, len(s.SynthesizeStreamCalls))
	copy(out, s.SynthesizeStreamCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeStreamCalls = nil
	s.ListVoicesCalls = 0
}
