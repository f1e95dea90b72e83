package listen

import "github.com/LiorLearning/social-story/pkg/recog"

// ErrorClass is the controller's classification of an engine error code.
// Raw engine codes never cross the controller boundary; callers only observe
// the classification outcome — a silent retry or a fatal callback.
type ErrorClass int

const (
	// ErrorRecoverable errors are retried silently with a short backoff and
	// never surfaced to the caller.
	ErrorRecoverable ErrorClass = iota

	// ErrorPermanent errors are terminal: surfaced once via the fatal
	// callback, after which the controller deactivates.
	ErrorPermanent

	// ErrorUnknown codes get exactly one retry; if the retry does not
	// produce a new listening state within a bounded time, they are
	// escalated to permanent.
	ErrorUnknown
)

// String returns the human-readable name of the class.
func (c ErrorClass) String() string {
	switch c {
	case ErrorRecoverable:
		return "recoverable"
	case ErrorPermanent:
		return "permanent"
	case ErrorUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ClassifyError maps an engine error code to its class.
//
// Recoverable covers everything the engine throws during normal operation in
// a noisy environment: network blips, transient capture failures,
// engine-initiated aborts, silence, and momentary service unavailability.
// Permanent covers configuration and permission failures that no retry can
// fix.
func ClassifyError(code string) ErrorClass {
	switch code {
	case recog.ErrCodeNetwork,
		recog.ErrCodeAudioCapture,
		recog.ErrCodeAborted,
		recog.ErrCodeNoSpeech,
		recog.ErrCodeServiceUnavailable:
		return ErrorRecoverable
	case recog.ErrCodeNotAllowed,
		recog.ErrCodeServiceNotAllowed,
		recog.ErrCodeLanguageNotSupported,
		recog.ErrCodeBadGrammar:
		return ErrorPermanent
	default:
		return ErrorUnknown
	}
}

// networkClass reports whether code indicates a network-level failure, which
// backs off longer before restarting than a generic abort does.
func networkClass(code string) bool {
	return code == recog.ErrCodeNetwork || code == recog.ErrCodeServiceUnavailable
}
