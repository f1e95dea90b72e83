// Package openai provides a narration synthesizer backed by the OpenAI
// speech API. It implements the voice.Synthesizer interface.
//
// Unlike the ElevenLabs backend, the OpenAI speech endpoint takes the whole
// input text up front, so SynthesizeStream buffers the text fragments before
// issuing the request and streams only the audio response.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/LiorLearning/social-story/pkg/voice"
)

const defaultModel = "gpt-4o-mini-tts"

// audioChunkSize is the read granularity for the streamed audio body.
const audioChunkSize = 8 * 1024

// builtinVoices is the fixed OpenAI voice catalogue. The speech API has no
// listing endpoint.
var builtinVoices = []string{
	"alloy", "ash", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer",
}

// config holds optional configuration for the synthesizer.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Synthesizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the speech model (e.g., "gpt-4o-mini-tts", "tts-1").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Synthesizer implements voice.Synthesizer using the OpenAI speech API.
type Synthesizer struct {
	client oai.Client
	model  string
}

// Compile-time interface assertion.
var _ voice.Synthesizer = (*Synthesizer)(nil)

// New constructs an OpenAI Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Synthesizer{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// SynthesizeStream collects the text fragments, issues one speech request,
// and streams the audio response body as PCM chunks.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, text <-chan string, profile voice.Profile) (<-chan []byte, error) {
	if profile.ID == "" {
		return nil, errors.New("openai: profile.ID must not be empty")
	}

	input, err := collect(ctx, text)
	if err != nil {
		return nil, err
	}
	if input == "" {
		return nil, errors.New("openai: no text to synthesize")
	}

	params := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(s.model),
		Input:          input,
		Voice:          oai.AudioSpeechNewParamsVoice(profile.ID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if profile.Speed != 0 {
		params.Speed = param.NewOpt(profile.Speed)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: speech request: %w", err)
	}

	audioCh := make(chan []byte, 64)
	go func() {
		defer close(audioCh)
		defer resp.Body.Close()
		for {
			buf := make([]byte, audioChunkSize)
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case audioCh <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return audioCh, nil
}

// collect drains the text channel into one input string.
func collect(ctx context.Context, text <-chan string) (string, error) {
	var sb strings.Builder
	for {
		select {
		case fragment, ok := <-text:
			if !ok {
				return strings.TrimSpace(sb.String()), nil
			}
			if fragment == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fragment)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// ListVoices returns the fixed OpenAI voice catalogue.
func (s *Synthesizer) ListVoices(_ context.Context) ([]voice.Profile, error) {
	out := make([]voice.Profile, 0, len(builtinVoices))
	for _, name := range builtinVoices {
		out = append(out, voice.Profile{
			ID:       name,
			Name:     name,
			Provider: "openai",
		})
	}
	return out, nil
}
