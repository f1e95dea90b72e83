package listen_test

import (
	"testing"

	"github.com/LiorLearning/social-story/internal/listen"
	"github.com/LiorLearning/social-story/pkg/recog"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want listen.ErrorClass
	}{
		{recog.ErrCodeNetwork, listen.ErrorRecoverable},
		{recog.ErrCodeAudioCapture, listen.ErrorRecoverable},
		{recog.ErrCodeAborted, listen.ErrorRecoverable},
		{recog.ErrCodeNoSpeech, listen.ErrorRecoverable},
		{recog.ErrCodeServiceUnavailable, listen.ErrorRecoverable},
		{recog.ErrCodeNotAllowed, listen.ErrorPermanent},
		{recog.ErrCodeServiceNotAllowed, listen.ErrorPermanent},
		{recog.ErrCodeLanguageNotSupported, listen.ErrorPermanent},
		{recog.ErrCodeBadGrammar, listen.ErrorPermanent},
		{"something-new", listen.ErrorUnknown},
		{"", listen.ErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			if got := listen.ClassifyError(tt.code); got != tt.want {
				t.Errorf("ClassifyError(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestErrorClassString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		class listen.ErrorClass
		want  string
	}{
		{listen.ErrorRecoverable, "recoverable"},
		{listen.ErrorPermanent, "permanent"},
		{listen.ErrorUnknown, "unknown"},
		{listen.ErrorClass(99), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("ErrorClass(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}
