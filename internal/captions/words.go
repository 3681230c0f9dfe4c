package captions

import (
	"strings"
	"unicode"

	"nightshift/internal/services"
)

// WordTiming is one display token with its speech interval.
type WordTiming struct {
	Word  string
	Start float64
	End   float64
}

var sentencePunct = map[rune]struct{}{
	'.': {}, ',': {}, '!': {}, '?': {}, ';': {}, ':': {}, '…': {},
}

func isPunct(r rune) bool {
	_, ok := sentencePunct[r]
	return ok
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !isPunct(r) {
			return false
		}
	}
	return len(s) > 0
}

// Words tokenizes the alignment into word timings. Whitespace splits tokens,
// sentence punctuation closes the token it ends, and punctuation-only tokens
// merge into their predecessor so a trailing "." never becomes its own
// caption. An alignment that yields no tokens is a validation error.
func Words(alignment *Alignment) ([]WordTiming, error) {
	if err := alignment.Validate(); err != nil {
		return nil, err
	}

	var (
		words     []WordTiming
		current   strings.Builder
		wordStart float64
		lastEnd   float64
		inWord    bool
	)

	flush := func() {
		if !inWord {
			return
		}
		token := strings.TrimSpace(current.String())
		if token != "" {
			words = append(words, WordTiming{Word: token, Start: wordStart, End: lastEnd})
		}
		current.Reset()
		inWord = false
	}

	for i, chStr := range alignment.Characters {
		var ch rune
		if chStr != "" {
			ch = []rune(chStr)[0]
		}

		if unicode.IsSpace(ch) {
			flush()
			continue
		}

		if !inWord {
			wordStart = alignment.CharacterStartTimes[i]
			inWord = true
		}
		current.WriteRune(ch)
		lastEnd = alignment.CharacterEndTimes[i]

		if isPunct(ch) {
			flush()
		}
	}
	flush()

	merged := make([]WordTiming, 0, len(words))
	for _, w := range words {
		if len(merged) > 0 && isPunctOnly(w.Word) {
			prev := &merged[len(merged)-1]
			prev.Word += w.Word
			prev.End = w.End
			continue
		}
		merged = append(merged, w)
	}

	if len(merged) == 0 {
		return nil, services.Wrap(services.ErrValidation, "captions", "tokenize", "alignment produced no words", nil)
	}
	return merged, nil
}
