package captions

import (
	"fmt"
	"math"
	"strings"
)

// Output geometry shared by the subtitle script and the video renderer.
const (
	PlayResX = 1080
	PlayResY = 1920
)

// Style configures the generated subtitle script. Colors are ASS AABBGGRR.
type Style struct {
	FontName       string
	FontSize       int
	PrimaryColor   string
	SecondaryColor string
	OutlineColor   string
	BackColor      string
	Outline        int
	Shadow         int
	Preset         string
}

// DefaultStyle returns the house caption look: bold display font, green
// primary, heavy outline, scale-pop animation.
func DefaultStyle() Style {
	return Style{
		FontName:       "BowlbyOne-Regular",
		FontSize:       72,
		PrimaryColor:   "&H008FFF34&",
		SecondaryColor: "&H0000FFFF&",
		OutlineColor:   "&H00000000&",
		BackColor:      "&H00000000&",
		Outline:        8,
		Shadow:         3,
		Preset:         "capcut_green",
	}
}

// GenerateASS renders the cue list as a complete ASS script. Each cue is a
// single karaoke word whose reveal spans the cue duration.
func GenerateASS(chunks []Chunk, style Style) string {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	fmt.Fprintf(&sb, "PlayResX: %d\n", PlayResX)
	fmt.Fprintf(&sb, "PlayResY: %d\n", PlayResY)
	sb.WriteString("WrapStyle: 2\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,%s,%s,%s,%s,-1,0,0,0,100,100,0,0,1,%d,%d,5,10,10,0,1\n\n",
		style.FontName, style.FontSize, style.PrimaryColor, style.SecondaryColor,
		style.OutlineColor, style.BackColor, style.Outline, style.Shadow)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	anim := animationTags(style.Preset)
	for _, c := range chunks {
		dur := math.Max(0.01, c.End-c.Start)
		cs := int(math.Round(dur * 100.0))
		if cs < 1 {
			cs = 1
		}

		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s{\\k%d}%s\n",
			FormatAssTime(c.Start), FormatAssTime(c.End), anim, cs, AssEscape(c.Word.Word))
	}

	return sb.String()
}

func animationTags(preset string) string {
	const pos = `\an5\pos(540,620)`

	switch strings.ToLower(preset) {
	case "none", "off":
		return "{" + pos + "}"
	case "fade":
		return "{" + pos + `\fad(60,80)}`
	default:
		return "{" + pos +
			`\fad(35,70)` +
			`\t(0,80,\fscx118\fscy118)` +
			`\t(80,150,\fscx100\fscy100)` +
			"}"
	}
}

// AssEscape escapes characters that would otherwise open override blocks.
func AssEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "{", `\{`)
	s = strings.ReplaceAll(s, "}", `\}`)
	return s
}

// FormatAssTime renders seconds as H:MM:SS.CC, clamping negatives to zero.
func FormatAssTime(t float64) string {
	if t < 0 {
		t = 0
	}
	h := int(t / 3600)
	m := int(math.Mod(t, 3600) / 60)
	s := int(math.Mod(t, 60))
	cs := int(math.Round((t - math.Floor(t)) * 100))
	if cs >= 100 {
		cs = 99
	}
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}
