package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nightshift/internal/services"
)

// SegmentPattern is the on-disk naming scheme for split parts, numbered
// from one.
const SegmentPattern = "part_%03d.mp4"

// Split cuts the source into stream-copied segments of segmentSeconds each
// and returns the produced paths in part order.
func (t *Tool) Split(ctx context.Context, source, outDir string, segmentSeconds int) ([]string, error) {
	if segmentSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "split", "segment length must be positive", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "split", "create segment directory", err)
	}

	args := []string{
		"-hide_banner", "-y",
		"-i", source,
		"-c", "copy",
		"-map", "0",
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", segmentSeconds),
		"-segment_start_number", "1",
		"-reset_timestamps", "1",
		filepath.Join(outDir, SegmentPattern),
	}
	output, err := t.run(ctx, t.ffmpeg, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "split",
			"ffmpeg segment failed: "+strings.TrimSpace(string(output)), err)
	}

	parts, err := filepath.Glob(filepath.Join(outDir, "part_*.mp4"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "media", "split", "list segments", err)
	}
	if len(parts) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "media", "split", "no segments produced", nil)
	}
	sort.Strings(parts)
	return parts, nil
}

// Concat joins the inputs into output with stream copy via the concat
// demuxer. Inputs must share codecs and parameters.
func (t *Tool) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) < 2 {
		return services.Wrap(services.ErrValidation, "media", "concat", "need at least two inputs", nil)
	}

	list, err := os.CreateTemp(filepath.Dir(output), "concat-*.txt")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "concat", "create list file", err)
	}
	defer os.Remove(list.Name())

	var sb strings.Builder
	for _, input := range inputs {
		abs, absErr := filepath.Abs(input)
		if absErr != nil {
			abs = input
		}
		fmt.Fprintf(&sb, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if _, err := list.WriteString(sb.String()); err != nil {
		list.Close()
		return services.Wrap(services.ErrExternalTool, "media", "concat", "write list file", err)
	}
	if err := list.Close(); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "concat", "close list file", err)
	}

	args := []string{
		"-hide_banner", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		output,
	}
	cmdOutput, err := t.run(ctx, t.ffmpeg, args...)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "concat",
			"ffmpeg concat failed: "+strings.TrimSpace(string(cmdOutput)), err)
	}
	return nil
}
