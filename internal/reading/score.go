package reading

// Result is the headline accuracy outcome for one spoken/target comparison.
// It is ephemeral — recomputed on every transcript update, never stored apart
// from its inputs.
type Result struct {
	// Percentage is in [0, 100]: the share of target words found anywhere in
	// the spoken token set. Zero when either side normalizes to nothing.
	Percentage float64

	// PerWord has one entry per target token, true when that token occurs
	// anywhere in the spoken token set. Empty when either side is empty.
	PerWord []bool
}

// Score compares spoken text against a target passage.
//
// Word order and duplication in the spoken text are irrelevant: a scrambled
// or stuttered reading that contains every target word still scores 100.
func Score(spoken, target string) Result {
	spokenTokens := Normalize(spoken)
	targetTokens := Normalize(target)
	if len(spokenTokens) == 0 || len(targetTokens) == 0 {
		return Result{}
	}

	spokenSet := make(map[string]struct{}, len(spokenTokens))
	for _, w := range spokenTokens {
		spokenSet[w] = struct{}{}
	}

	perWord := make([]bool, len(targetTokens))
	matched := 0
	for i, w := range targetTokens {
		if _, ok := spokenSet[w]; ok {
			perWord[i] = true
			matched++
		}
	}

	return Result{
		Percentage: 100 * float64(matched) / float64(len(targetTokens)),
		PerWord:    perWord,
	}
}

// Breakdown categorizes the differences between spoken and target text for
// richer feedback than the headline percentage.
type Breakdown struct {
	// CorrectWords are target tokens found in the spoken token set, in
	// target order.
	CorrectWords []string

	// MissingWords are target tokens not found anywhere in the spoken token
	// set, in target order.
	MissingWords []string

	// IncorrectAttempts are spoken tokens that appear nowhere in the target,
	// in spoken order. Likely misreadings or recognizer noise.
	IncorrectAttempts []string
}

// Analyze produces the categorized diff between spoken and target text.
// It shares Score's normalization and presence semantics.
func Analyze(spoken, target string) Breakdown {
	spokenTokens := Normalize(spoken)
	targetTokens := Normalize(target)

	spokenSet := make(map[string]struct{}, len(spokenTokens))
	for _, w := range spokenTokens {
		spokenSet[w] = struct{}{}
	}
	targetSet := make(map[string]struct{}, len(targetTokens))
	for _, w := range targetTokens {
		targetSet[w] = struct{}{}
	}

	var b Breakdown
	for _, w := range targetTokens {
		if _, ok := spokenSet[w]; ok {
			b.CorrectWords = append(b.CorrectWords, w)
		} else {
			b.MissingWords = append(b.MissingWords, w)
		}
	}
	for _, w := range spokenTokens {
		if _, ok := targetSet[w]; !ok {
			b.IncorrectAttempts = append(b.IncorrectAttempts, w)
		}
	}
	return b
}
