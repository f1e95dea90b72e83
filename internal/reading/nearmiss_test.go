package reading

import (
	"testing"
)

func TestFindNearMisses_PairsAttemptWithMissingWord(t *testing.T) {
	t.Parallel()

	b := Analyze("the wisper tower", "the whisper tower")
	misses := FindNearMisses(b)

	if len(misses) != 1 {
		t.Fatalf("len(misses) = %d, want 1 (%v)", len(misses), misses)
	}
	if misses[0].Spoken != "wisper" || misses[0].Target != "whisper" {
		t.Errorf("miss = %+v, want wisper->whisper", misses[0])
	}
	if misses[0].Similarity < 0.85 {
		t.Errorf("Similarity = %v, want >= 0.85", misses[0].Similarity)
	}
}

func TestFindNearMisses_IgnoresUnrelatedWords(t *testing.T) {
	t.Parallel()

	b := Breakdown{
		MissingWords:      []string{"elephant"},
		IncorrectAttempts: []string{"cat"},
	}
	if misses := FindNearMisses(b); len(misses) != 0 {
		t.Errorf("misses = %v, want none", misses)
	}
}

func TestFindNearMisses_EmptyInputs(t *testing.T) {
	t.Parallel()

	if misses := FindNearMisses(Breakdown{}); misses != nil {
		t.Errorf("misses = %v, want nil", misses)
	}
	if misses := FindNearMisses(Breakdown{MissingWords: []string{"cat"}}); misses != nil {
		t.Errorf("misses = %v, want nil", misses)
	}
	if misses := FindNearMisses(Breakdown{IncorrectAttempts: []string{"cat"}}); misses != nil {
		t.Errorf("misses = %v, want nil", misses)
	}
}

func TestFindNearMisses_EachTargetClaimedOnce(t *testing.T) {
	t.Parallel()

	// Two attempts close to the same missing word: only the first (both
	// clear the threshold, first wins its claim) may take it.
	b := Breakdown{
		MissingWords:      []string{"brown"},
		IncorrectAttempts: []string{"brwn", "browne"},
	}
	misses := FindNearMisses(b)
	if len(misses) != 1 {
		t.Fatalf("len(misses) = %d, want 1 (%v)", len(misses), misses)
	}
	if misses[0].Spoken != "brwn" {
		t.Errorf("Spoken = %q, want %q (first attempt claims the target)", misses[0].Spoken, "brwn")
	}
}

func TestFindNearMisses_ThresholdOption(t *testing.T) {
	t.Parallel()

	b := Breakdown{
		MissingWords:      []string{"whisper"},
		IncorrectAttempts: []string{"wisper"},
	}
	// An impossible threshold suppresses the pairing.
	misses := FindNearMisses(b,
		WithPhoneticThreshold(1.01),
		WithFuzzyThreshold(1.01),
	)
	if len(misses) != 0 {
		t.Errorf("misses = %v, want none with thresholds above 1.0", misses)
	}
}
