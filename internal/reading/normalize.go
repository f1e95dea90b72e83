// Package reading scores how much of a target passage a child actually read
// aloud, given the transcript produced by a speech-recognition engine.
//
// All functions are pure and run in microseconds for passage-length text, so
// they are safe to call directly inside engine event handlers.
//
// The matching policy is presence-based, not positional: a target word counts
// as read if it occurs anywhere in the spoken token set. Recognition engines
// delay, fragment, and occasionally duplicate text across session restarts;
// positional or edit-distance comparison would be dominated by that engine
// noise rather than by reading quality.
package reading

import (
	"regexp"
	"strings"
)

// nonWord matches every run of characters that is neither a word character
// nor whitespace. Intentionally crude: no locale-aware stemming, no
// punctuation-sensitive rules. Predictability beats linguistic accuracy here.
var nonWord = regexp.MustCompile(`[^\w\s]+`)

// Normalize canonicalizes text into a comparable token sequence: lower-case,
// strip punctuation, collapse whitespace, split on spaces. Empty or
// whitespace-only input yields a nil slice.
func Normalize(text string) []string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, "")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
