// Package ffmpeg wraps the ffmpeg and ffprobe binaries for probing,
// splitting, rendering, and thumbnailing vertical video.
package ffmpeg
