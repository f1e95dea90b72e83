// Package elevenlabs provides an ElevenLabs-backed narration synthesizer
// using the ElevenLabs streaming WebSocket API. It implements the
// voice.Synthesizer interface.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/LiorLearning/social-story/pkg/voice"
)

const (
	wsEndpointFmt    = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s"
	voicesEndpoint   = "https://api.elevenlabs.io/v1/voices"
	defaultModel     = "eleven_turbo_v2_5"
	defaultOutputFmt = "pcm_16000"
)

// Option is a functional option for configuring the ElevenLabs Synthesizer.
type Option func(*Synthesizer)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_turbo_v2_5").
func WithModel(model string) Option {
	return func(s *Synthesizer) {
		s.model = model
	}
}

// WithOutputFormat sets the audio output format (e.g., "pcm_16000", "pcm_24000").
func WithOutputFormat(format string) Option {
	return func(s *Synthesizer) {
		s.outputFormat = format
	}
}

// WithBaseVoicesURL overrides the voices catalogue endpoint. Used in tests.
func WithBaseVoicesURL(url string) Option {
	return func(s *Synthesizer) {
		s.voicesURL = url
	}
}

// Synthesizer implements voice.Synthesizer backed by the ElevenLabs
// streaming API.
type Synthesizer struct {
	apiKey       string
	model        string
	outputFormat string
	voicesURL    string
	httpClient   *http.Client
}

// Compile-time interface assertion.
var _ voice.Synthesizer = (*Synthesizer)(nil)

// New creates a new ElevenLabs Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	s := &Synthesizer{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		voicesURL:    voicesEndpoint,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// textMessage is the JSON payload sent to ElevenLabs for each text fragment.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// audioResponse is the JSON message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// openMessage is the initial handshake that authenticates and configures the
// stream. ElevenLabs requires a non-empty first text value.
type openMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
	OutputFormat  string         `json:"output_format,omitempty"`
}

// SynthesizeStream opens a WebSocket to ElevenLabs, pipes text fragments from
// the text channel, and returns a channel emitting raw PCM audio chunks.
//
// The returned audio channel is closed when synthesis completes or ctx is
// cancelled.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, text <-chan string, profile voice.Profile) (<-chan []byte, error) {
	if profile.ID == "" {
		return nil, errors.New("elevenlabs: profile.ID must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf(wsEndpointFmt, profile.ID, s.model), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}

	settings := settingsFor(profile)
	open := openMessage{
		Text:          " ",
		VoiceSettings: settings,
		XiAPIKey:      s.apiKey,
		OutputFormat:  s.outputFormat,
	}
	openBytes, _ := json.Marshal(open)
	if err := conn.Write(ctx, websocket.MessageText, openBytes); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("elevenlabs: open stream: %w", err)
	}

	audioCh := make(chan []byte, 256)

	go func() {
		defer close(audioCh)
		defer conn.Close(websocket.StatusNormalClosure, "done")

		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				_, msg, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var resp audioResponse
				if err := json.Unmarshal(msg, &resp); err != nil {
					continue
				}
				if resp.Audio == "" {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
				if err != nil {
					continue
				}
				select {
				case audioCh <- pcm:
				case <-ctx.Done():
					return
				}
			}
		}()

		// Voice settings accompany only the first fragment.
		vs := settings
		for {
			select {
			case fragment, ok := <-text:
				if !ok {
					// Text exhausted; an empty text message flushes the
					// remaining audio.
					flushBytes, _ := json.Marshal(textMessage{Text: ""})
					_ = conn.Write(ctx, websocket.MessageText, flushBytes)
					<-readDone
					return
				}
				if fragment == "" {
					continue
				}
				msgBytes, _ := json.Marshal(textMessage{Text: fragment, VoiceSettings: vs})
				vs = nil
				if err := conn.Write(ctx, websocket.MessageText, msgBytes); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return audioCh, nil
}

// settingsFor builds the voice settings for a profile. Stability and
// similarity are fixed at values that suit steady children's narration.
func settingsFor(profile voice.Profile) *voiceSettings {
	return &voiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Speed:           profile.Speed,
	}
}

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []catalogueVoice `json:"voices"`
}

// catalogueVoice is a single voice entry from the ElevenLabs API.
type catalogueVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available for the configured API key.
func (s *Synthesizer) ListVoices(ctx context.Context) ([]voice.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.voicesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return vr.profiles(), nil
}

// profiles converts the catalogue response into voice profiles.
func (vr voicesResponse) profiles() []voice.Profile {
	out := make([]voice.Profile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		out = append(out, voice.Profile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return out
}
