package thumbnail

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const fallbackOverlayText = "NIGHTSHIFT"

// Stylize collapses whitespace runs and uppercases the text for display.
func Stylize(text string) string {
	return strings.ToUpper(strings.Join(strings.Fields(text), " "))
}

// OneWordPerLine stacks up to maxLines words vertically. When the text is
// clipped, trailing punctuation is trimmed from the last kept word and an
// ellipsis appended. Empty input yields the fallback brand text.
func OneWordPerLine(text string, maxLines int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return fallbackOverlayText
	}
	if maxLines <= 0 {
		maxLines = 1
	}
	clipped := len(words) > maxLines
	if clipped {
		words = words[:maxLines]
	}
	if clipped {
		last := strings.TrimRightFunc(words[len(words)-1], func(r rune) bool {
			return unicode.IsPunct(r)
		})
		if last == "" {
			last = words[len(words)-1]
		}
		words[len(words)-1] = last + "…"
	}
	return strings.Join(words, "\n")
}

// WrapToTwoLines splits the text near its midpoint at a word boundary.
func WrapToTwoLines(text string) string {
	words := strings.Fields(text)
	if len(words) < 2 {
		return strings.Join(words, " ")
	}

	best := 1
	bestDiff := -1
	for i := 1; i < len(words); i++ {
		first := len(strings.Join(words[:i], " "))
		second := len(strings.Join(words[i:], " "))
		diff := first - second
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return strings.Join(words[:best], " ") + "\n" + strings.Join(words[best:], " ")
}

// FontSizes is a size ramp from shortest to longest line lengths.
type FontSizes struct {
	Big    int
	Medium int
	Small  int
	Tiny   int
}

// GeneratedFontSizes is the ramp for stacked word thumbnails.
var GeneratedFontSizes = FontSizes{Big: 170, Medium: 150, Small: 130, Tiny: 115}

// PremadeFontSizes is the ramp for series part labels.
var PremadeFontSizes = FontSizes{Big: 190, Medium: 170, Small: 150, Tiny: 130}

// ChooseFontSize picks a size from the ramp based on the longest line.
func ChooseFontSize(text string, sizes FontSizes) int {
	longest := 0
	for _, line := range strings.Split(text, "\n") {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	switch {
	case longest <= 10:
		return sizes.Big
	case longest <= 14:
		return sizes.Medium
	case longest <= 18:
		return sizes.Small
	default:
		return sizes.Tiny
	}
}

// ExtractFirstSentence returns the first sentence of the script, or its
// first line when no terminator appears, capped at 90 characters.
func ExtractFirstSentence(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	sentence := trimmed
	if idx := strings.IndexAny(trimmed, ".!?"); idx >= 0 {
		sentence = trimmed[:idx+1]
	} else if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		sentence = trimmed[:idx]
	}
	sentence = strings.Trim(strings.TrimSpace(sentence), `"'`)

	const limit = 90
	runes := []rune(sentence)
	if len(runes) > limit {
		sentence = strings.TrimSpace(string(runes[:limit])) + "…"
	}
	return sentence
}
