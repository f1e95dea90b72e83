// Package voice defines the Synthesizer interface for narration backends.
//
// A voice provider wraps a speech synthesis service (e.g., ElevenLabs or
// OpenAI) and presents a uniform streaming interface. The primary entry point
// is SynthesizeStream, which accepts a channel of text fragments and returns
// a channel of raw PCM audio bytes as they become available, so playback of a
// story page can begin before the whole page has been synthesised.
//
// Implementations must be safe for concurrent use.
package voice

import "context"

// Profile describes a narration voice configuration.
type Profile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which backend this voice belongs to.
	Provider string

	// Speed adjusts speaking rate (0.5–2.0, 0 = provider default). Slower
	// rates suit early readers following along word by word.
	Speed float64

	// Metadata holds provider-specific voice attributes (gender, age,
	// accent, etc.).
	Metadata map[string]string
}

// Synthesizer is the abstraction over any narration backend.
//
// Implementations must be safe for concurrent use; multiple pages may be
// synthesised in parallel.
type Synthesizer interface {
	// SynthesizeStream consumes text fragments from the text channel and
	// returns a channel that emits raw PCM audio byte slices as they are
	// synthesised.
	//
	// The returned audio channel is closed by the implementation when all
	// text has been synthesised or when ctx is cancelled. The caller must
	// drain the audio channel to avoid blocking the provider's internal
	// goroutines.
	//
	// Returns a non-nil error only if the stream cannot be started. Errors
	// during synthesis are signalled by closing the audio channel early;
	// callers should check ctx.Err() to distinguish cancellation from
	// provider failure.
	SynthesizeStream(ctx context.Context, text <-chan string, profile Profile) (<-chan []byte, error)

	// ListVoices returns all voice profiles available from this provider.
	// The list reflects the provider's current catalogue and may change
	// between calls.
	ListVoices(ctx context.Context) ([]Profile, error)
}
