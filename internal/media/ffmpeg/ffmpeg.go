package ffmpeg

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"nightshift/internal/services"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Tool invokes ffmpeg and ffprobe. The zero value is not usable; construct
// with New.
type Tool struct {
	ffmpeg  string
	ffprobe string
	run     Runner
}

// Option customizes the tool.
type Option func(*Tool)

// WithBinaries overrides the ffmpeg and ffprobe binary paths.
func WithBinaries(ffmpegBinary, ffprobeBinary string) Option {
	return func(t *Tool) {
		if strings.TrimSpace(ffmpegBinary) != "" {
			t.ffmpeg = ffmpegBinary
		}
		if strings.TrimSpace(ffprobeBinary) != "" {
			t.ffprobe = ffprobeBinary
		}
	}
}

// WithRunner overrides command execution (useful for tests).
func WithRunner(run Runner) Option {
	return func(t *Tool) {
		if run != nil {
			t.run = run
		}
	}
}

// New constructs a tool resolving ffmpeg and ffprobe from PATH.
func New(opts ...Option) *Tool {
	tool := &Tool{ffmpeg: "ffmpeg", ffprobe: "ffprobe", run: runCombined}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

// Duration probes the container duration of path in seconds.
func (t *Tool) Duration(ctx context.Context, path string) (float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, services.Wrap(services.ErrValidation, "media", "probe duration", "empty path", nil)
	}

	output, err := t.run(ctx, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "media", "probe duration",
			"ffprobe failed: "+strings.TrimSpace(string(output)), err)
	}

	value := strings.TrimSpace(string(output))
	duration, parseErr := strconv.ParseFloat(value, 64)
	if parseErr != nil || duration <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "media", "probe duration",
			"unusable duration "+strconv.Quote(value), parseErr)
	}
	return duration, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
