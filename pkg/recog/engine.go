// Package recog defines the contract for continuous speech-recognition
// engines consumed by the listening session controller.
//
// An Engine is one underlying recognition session: a black box that, once
// started, emits interim and final recognition results through a fixed set of
// callbacks until it ends — either because Stop was requested or because the
// engine decided to end on its own. Engines give only two guarantees:
//
//   - OnEnd is eventually invoked after Stop, or after the engine terminates
//     of its own accord.
//   - No results are delivered after OnEnd without a new Start.
//
// Everything else — undocumented duration limits, spurious errors, silent
// self-termination — is the caller's problem. The listen package owns the
// restart and backoff policy that papers over those gaps.
//
// Engines are obtained through a [Factory] so that the session controller can
// recreate the underlying session on every restart and so that tests can
// inject scripted doubles (see the mock subpackage).
package recog

// Result is a single typed recognition result. Raw engine event payloads are
// converted to this shape at the boundary; nothing above the engine adapter
// touches the engine's native event format.
type Result struct {
	// Transcript is the recognized text. For interim results the engine
	// resends the whole utterance so far, not a delta.
	Transcript string

	// IsFinal reports whether the engine has committed to this result.
	// Final results are never revised; interim results are.
	IsFinal bool

	// Confidence is the engine's confidence in a final result (0.0–1.0).
	// Zero when the engine does not report confidence or for interims.
	Confidence float64
}

// Well-known engine error codes. The vocabulary follows the Web Speech API,
// which the browser-side engines report verbatim; other engines should map
// their failures onto the closest code.
const (
	// ErrCodeNetwork indicates a network-level failure mid-session.
	ErrCodeNetwork = "network"

	// ErrCodeAudioCapture indicates the audio input could not be captured.
	ErrCodeAudioCapture = "audio-capture"

	// ErrCodeAborted indicates the engine aborted the session on its own.
	ErrCodeAborted = "aborted"

	// ErrCodeNoSpeech indicates the engine heard nothing it could recognize.
	ErrCodeNoSpeech = "no-speech"

	// ErrCodeServiceUnavailable indicates the recognition service was
	// momentarily unreachable.
	ErrCodeServiceUnavailable = "service-unavailable"

	// ErrCodeNotAllowed indicates microphone permission was denied.
	ErrCodeNotAllowed = "not-allowed"

	// ErrCodeServiceNotAllowed indicates the recognition service refused the
	// caller outright (policy, quota revocation).
	ErrCodeServiceNotAllowed = "service-not-allowed"

	// ErrCodeLanguageNotSupported indicates the configured language is not
	// available on this engine.
	ErrCodeLanguageNotSupported = "language-not-supported"

	// ErrCodeBadGrammar indicates the recognition grammar was rejected.
	ErrCodeBadGrammar = "bad-grammar"
)

// Handlers is the callback set an engine invokes while running. All callbacks
// are optional; nil entries are skipped. Engines must invoke callbacks from a
// single goroutine at a time — handlers are not required to be reentrant.
type Handlers struct {
	// OnStart fires once when the engine has actually begun capturing audio.
	OnStart func()

	// OnResult delivers one or more recognition results. A batch may mix
	// interim and final results; order within the batch is the engine's
	// recognition order.
	OnResult func(results []Result)

	// OnError reports an engine error by code (see the ErrCode constants).
	// An error does not imply the session has ended; OnEnd still follows if
	// the engine terminates.
	OnError func(code string)

	// OnEnd fires exactly once when this underlying session is over, whether
	// by Stop, by error, or by the engine's own volition.
	OnEnd func()
}

// Config describes one underlying recognition session.
type Config struct {
	// Continuous asks the engine to keep recognizing across utterance
	// boundaries instead of stopping after the first final result. Engines
	// honour this only approximately — see the package comment.
	Continuous bool

	// InterimResults asks the engine to deliver provisional results while
	// the speaker is still talking.
	InterimResults bool

	// Language is the BCP-47 recognition language tag (e.g. "en-US").
	Language string

	// Handlers receives the engine's event stream.
	Handlers Handlers
}

// Engine is one underlying recognition session.
//
// Start and Stop must be safe to call from any goroutine. Stop must be
// idempotent and must not block waiting for OnEnd.
type Engine interface {
	// Start begins capturing and recognizing audio. It returns an error only
	// when the session cannot be initiated at all (e.g. the engine is
	// unsupported in this environment); runtime failures are reported through
	// Handlers.OnError.
	Start() error

	// Stop requests the session end. The engine eventually invokes OnEnd;
	// Stop itself returns immediately.
	Stop()
}

// Factory creates a fresh underlying engine session. The session controller
// calls it once per start or restart; each returned Engine is used for at
// most one Start/OnEnd cycle.
type Factory func(cfg Config) Engine
