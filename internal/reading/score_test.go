package reading

import (
	"reflect"
	"strings"
	"testing"
)

func TestScore_OrderIndependence(t *testing.T) {
	t.Parallel()

	// Every target word present, wildly out of order.
	got := Score("fox brown the quick", "the quick brown fox")
	if got.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", got.Percentage)
	}
	want := []bool{true, true, true, true}
	if !reflect.DeepEqual(got.PerWord, want) {
		t.Errorf("PerWord = %v, want %v", got.PerWord, want)
	}
}

func TestScore_PartialRead(t *testing.T) {
	t.Parallel()

	got := Score("the fox", "the quick brown fox")
	if got.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", got.Percentage)
	}
	want := []bool{true, false, false, true}
	if !reflect.DeepEqual(got.PerWord, want) {
		t.Errorf("PerWord = %v, want %v", got.PerWord, want)
	}
}

func TestScore_EmptyInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		spoken, target string
	}{
		{"empty spoken", "", "the cat sat"},
		{"empty target", "the cat sat", ""},
		{"both empty", "", ""},
		{"punctuation-only target", "hello", "?!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Score(tt.spoken, tt.target)
			if got.Percentage != 0 {
				t.Errorf("Score(%q, %q).Percentage = %v, want 0", tt.spoken, tt.target, got.Percentage)
			}
			if len(got.PerWord) != 0 {
				t.Errorf("Score(%q, %q).PerWord = %v, want empty", tt.spoken, tt.target, got.PerWord)
			}
		})
	}
}

func TestScore_DuplicationInvariance(t *testing.T) {
	t.Parallel()

	target := "the quick brown fox"
	base := Score("the quick brown fox", target)

	// Duplicating spoken tokens must not change the score.
	dup := Score("the the the quick quick brown fox fox", target)
	if dup.Percentage != base.Percentage {
		t.Errorf("duplicated spoken: Percentage = %v, want %v", dup.Percentage, base.Percentage)
	}

	// Extra noise words must not reduce it either.
	noisy := Score("um the quick uh brown fox yeah", target)
	if noisy.Percentage != base.Percentage {
		t.Errorf("noisy spoken: Percentage = %v, want %v", noisy.Percentage, base.Percentage)
	}
}

func TestScore_BoundsAndFormula(t *testing.T) {
	t.Parallel()

	cases := []struct{ spoken, target string }{
		{"", ""},
		{"a", "a b c"},
		{"a b c d e f", "a"},
		{"the cat sat on the mat", "a completely different sentence"},
		{"Once upon a time", "once UPON a TIME!"},
	}
	for _, c := range cases {
		got := Score(c.spoken, c.target)
		if got.Percentage < 0 || got.Percentage > 100 {
			t.Errorf("Score(%q, %q).Percentage = %v, out of [0,100]", c.spoken, c.target, got.Percentage)
		}
		matched := 0
		for _, ok := range got.PerWord {
			if ok {
				matched++
			}
		}
		targetLen := len(Normalize(c.target))
		if targetLen == 0 {
			if got.Percentage != 0 {
				t.Errorf("Score(%q, %q).Percentage = %v, want 0 for empty target", c.spoken, c.target, got.Percentage)
			}
			continue
		}
		want := 100 * float64(matched) / float64(targetLen)
		if got.Percentage != want {
			t.Errorf("Score(%q, %q).Percentage = %v, want %v", c.spoken, c.target, got.Percentage, want)
		}
	}
}

func TestScore_NormalizesBothSides(t *testing.T) {
	t.Parallel()

	got := Score("THE  cat, sat?", "the cat sat")
	if got.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", got.Percentage)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	b := Analyze("the big fox jumped", "the quick brown fox")

	if want := []string{"the", "fox"}; !reflect.DeepEqual(b.CorrectWords, want) {
		t.Errorf("CorrectWords = %v, want %v", b.CorrectWords, want)
	}
	if want := []string{"quick", "brown"}; !reflect.DeepEqual(b.MissingWords, want) {
		t.Errorf("MissingWords = %v, want %v", b.MissingWords, want)
	}
	if want := []string{"big", "jumped"}; !reflect.DeepEqual(b.IncorrectAttempts, want) {
		t.Errorf("IncorrectAttempts = %v, want %v", b.IncorrectAttempts, want)
	}
}

func TestAnalyze_EmptySpoken(t *testing.T) {
	t.Parallel()

	b := Analyze("", "the cat sat")
	if len(b.CorrectWords) != 0 {
		t.Errorf("CorrectWords = %v, want empty", b.CorrectWords)
	}
	if want := []string{"the", "cat", "sat"}; !reflect.DeepEqual(b.MissingWords, want) {
		t.Errorf("MissingWords = %v, want %v", b.MissingWords, want)
	}
	if len(b.IncorrectAttempts) != 0 {
		t.Errorf("IncorrectAttempts = %v, want empty", b.IncorrectAttempts)
	}
}

func TestScore_LongPassage(t *testing.T) {
	t.Parallel()

	// A passage-length target with half its words read.
	words := make([]string, 0, 100)
	spoken := make([]string, 0, 50)
	for i := 0; i < 100; i++ {
		w := "w" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		words = append(words, w)
		if i%2 == 0 {
			spoken = append(spoken, w)
		}
	}
	got := Score(strings.Join(spoken, " "), strings.Join(words, " "))
	if got.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", got.Percentage)
	}
	if len(got.PerWord) != 100 {
		t.Errorf("len(PerWord) = %d, want 100", len(got.PerWord))
	}
}
