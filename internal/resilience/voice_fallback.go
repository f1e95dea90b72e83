package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LiorLearning/social-story/pkg/voice"
)

// ErrAllFailed is returned when every narration backend fails or has an open
// circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the circuit breaker created for each narration
// backend in a [VoiceFallback].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// synthEntry pairs a synthesizer with its dedicated circuit breaker.
type synthEntry struct {
	name    string
	synth   voice.Synthesizer
	breaker *CircuitBreaker
}

// VoiceFallback implements [voice.Synthesizer] with automatic failover across
// multiple narration backends. Backends are tried in registration order;
// each has its own circuit breaker, so a provider outage stops costing
// latency after a few failures.
//
// The entry list is fixed once the server starts serving; AddFallback is not
// safe to call concurrently with synthesis.
type VoiceFallback struct {
	entries []synthEntry
	cfg     FallbackConfig
}

// Compile-time interface assertion.
var _ voice.Synthesizer = (*VoiceFallback)(nil)

// NewVoiceFallback creates a [VoiceFallback] with primary as the preferred
// backend.
func NewVoiceFallback(primary voice.Synthesizer, primaryName string, cfg FallbackConfig) *VoiceFallback {
	f := &VoiceFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional synthesizer, tried after all earlier
// entries.
func (f *VoiceFallback) AddFallback(name string, s voice.Synthesizer) {
	f.add(name, s)
}

func (f *VoiceFallback) add(name string, s voice.Synthesizer) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	f.entries = append(f.entries, synthEntry{
		name:    name,
		synth:   s,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// SynthesizeStream consumes text fragments and returns a channel of audio
// bytes from the first healthy backend. Only the initial stream setup is
// covered by failover; mid-stream errors are the caller's responsibility.
func (f *VoiceFallback) SynthesizeStream(ctx context.Context, text <-chan string, profile voice.Profile) (<-chan []byte, error) {
	var audio <-chan []byte
	err := f.execute(func(s voice.Synthesizer) error {
		ch, err := s.SynthesizeStream(ctx, text, profile)
		if err != nil {
			return err
		}
		audio = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// ListVoices returns available voices from the first healthy backend.
func (f *VoiceFallback) ListVoices(ctx context.Context) ([]voice.Profile, error) {
	var voices []voice.Profile
	err := f.execute(func(s voice.Synthesizer) error {
		vs, err := s.ListVoices(ctx)
		if err != nil {
			return err
		}
		voices = vs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voices, nil
}

// execute tries fn against each backend in order until one succeeds.
// Open-breaker entries are skipped. Returns [ErrAllFailed] wrapped with the
// last error when every backend fails.
func (f *VoiceFallback) execute(fn func(voice.Synthesizer) error) error {
	var lastErr error
	for i := range f.entries {
		entry := &f.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.synth)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping narration backend (circuit open)", "provider", entry.name)
		} else {
			slog.Warn("narration backend failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
