package splitter

// remainderToleranceSeconds decides whether the trailing segment counts as
// a full segment. Anything meaningfully shorter than the configured length
// is folded into the penultimate segment.
const remainderToleranceSeconds = 0.25

// ShouldMergeTrailing reports whether the final segment should be folded
// into the one before it, given the probed per-segment durations.
func ShouldMergeTrailing(durations []float64, segmentSeconds float64) bool {
	n := len(durations)
	if n < 2 || segmentSeconds <= 0 {
		return false
	}
	return durations[n-1] < segmentSeconds-remainderToleranceSeconds
}
