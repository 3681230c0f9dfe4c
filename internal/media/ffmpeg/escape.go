package ffmpeg

import "strings"

// FilterPath escapes a filesystem path for use inside a single-quoted
// filtergraph argument. Backslashes become forward slashes so Windows-style
// paths survive the filtergraph parser.
func FilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `\'`)
	return path
}

// DrawtextEscape escapes free text for the drawtext filter's text option.
// Carriage returns are dropped and newlines become drawtext line breaks.
func DrawtextEscape(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, ":", `\:`)
	text = strings.ReplaceAll(text, "'", `\'`)
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", `\n`)
	return text
}
