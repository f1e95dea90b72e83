package reading

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// NearMiss pairs a word the child spoke with the target word they most likely
// attempted, judged by pronunciation similarity. Useful for feedback like
// "you said 'wispers' — the word is 'whispers'" instead of marking the word
// as simply missing.
type NearMiss struct {
	// Spoken is the incorrect attempt as transcribed.
	Spoken string

	// Target is the missing target word it most closely resembles.
	Target string

	// Similarity is the Jaro-Winkler score between the two (0.0–1.0).
	Similarity float64
}

// NearMissOption configures FindNearMisses.
type NearMissOption func(*nearMissConfig)

type nearMissConfig struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-overlapping pair to count as a near miss. Default: 0.70.
func WithPhoneticThreshold(threshold float64) NearMissOption {
	return func(c *nearMissConfig) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required for a pair
// with no phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) NearMissOption {
	return func(c *nearMissConfig) {
		c.fuzzyThreshold = threshold
	}
}

// FindNearMisses matches each incorrect attempt in b against the missing
// target words by pronunciation similarity.
//
// Candidates are filtered in two stages: attempts whose Double Metaphone
// codes overlap a missing word's codes qualify at the phonetic threshold;
// pairs without phonetic overlap must clear the stricter fuzzy threshold on
// raw Jaro-Winkler similarity. Each missing word is claimed by at most one
// attempt (the highest-scoring one), and results follow the order of
// b.IncorrectAttempts.
func FindNearMisses(b Breakdown, opts ...NearMissOption) []NearMiss {
	if len(b.IncorrectAttempts) == 0 || len(b.MissingWords) == 0 {
		return nil
	}

	cfg := nearMissConfig{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(&cfg)
	}

	claimed := make(map[string]struct{}, len(b.MissingWords))
	var misses []NearMiss

	for _, attempt := range b.IncorrectAttempts {
		attemptCodes := metaphoneCodes(attempt)

		var best NearMiss
		for _, missing := range b.MissingWords {
			if _, taken := claimed[missing]; taken {
				continue
			}

			score := matchr.JaroWinkler(strings.ToLower(attempt), strings.ToLower(missing), false)
			threshold := cfg.fuzzyThreshold
			if codesOverlap(attemptCodes, metaphoneCodes(missing)) {
				threshold = cfg.phoneticThreshold
			}
			if score >= threshold && score > best.Similarity {
				best = NearMiss{Spoken: attempt, Target: missing, Similarity: score}
			}
		}

		if best.Target != "" {
			claimed[best.Target] = struct{}{}
			misses = append(misses, best)
		}
	}
	return misses
}

// metaphoneCodes returns the non-empty Double Metaphone codes for word.
func metaphoneCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
