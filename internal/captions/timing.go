package captions

import "math"

const (
	// endHoldSeconds keeps each caption on screen slightly past its word.
	endHoldSeconds = 0.05
	// minGapSeconds is the smallest allowed gap between consecutive cues.
	minGapSeconds = 0.02
	// pushedWordMinSeconds is the minimum duration granted to a cue whose
	// start had to be pushed forward to clear its predecessor.
	pushedWordMinSeconds = 0.06
)

// Chunk is one caption cue: the word plus its adjusted display interval.
type Chunk struct {
	Word  WordTiming
	Start float64
	End   float64
}

// ChunkOneWord produces one cue per word. Each cue gains an end hold capped
// so it never crowds the next word's start, and a final clamp pass pushes any
// overlapping cue forward, granting it a minimum readable duration. The
// offset shifts every cue globally (positive delays captions).
func ChunkOneWord(words []WordTiming, offsetSeconds float64) []Chunk {
	chunks := make([]Chunk, 0, len(words))

	for i, w := range words {
		start := w.Start + offsetSeconds
		end := w.End + offsetSeconds

		if i < len(words)-1 {
			nextStart := words[i+1].Start + offsetSeconds
			end = math.Min(end+endHoldSeconds, math.Max(end, nextStart-minGapSeconds))
		} else {
			end += endHoldSeconds
		}

		chunks = append(chunks, Chunk{Word: w, Start: start, End: end})
	}

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		cur := chunks[i]
		if cur.Start < prev.End+minGapSeconds {
			newStart := prev.End + minGapSeconds
			newEnd := math.Max(cur.End, newStart+pushedWordMinSeconds)
			chunks[i] = Chunk{Word: cur.Word, Start: newStart, End: newEnd}
		}
	}

	return chunks
}
