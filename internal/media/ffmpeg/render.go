package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"nightshift/internal/services"
)

// DefaultEncoders is the hardware-first encoder preference order. Render
// falls through the list until one succeeds.
var DefaultEncoders = []string{"h264_v4l2m2m", "h264_omx", "libx264"}

// RenderSpec describes one final video render: a background video looped or
// offset under a narration track with burned-in subtitles.
type RenderSpec struct {
	BackgroundPath string
	AudioPath      string
	SubtitlePath   string
	OutputPath     string

	// StartSeconds seeks into the background before rendering.
	StartSeconds float64
	// Loop repeats the background when it cannot cover the audio.
	Loop bool
	// AudioDelaySeconds delays narration start for a silent lead-in.
	AudioDelaySeconds float64
	// DurationSeconds is the total output duration including the lead-in.
	DurationSeconds float64

	FontsDir string
	Encoders []string
}

func (s RenderSpec) validate() error {
	switch {
	case strings.TrimSpace(s.BackgroundPath) == "":
		return services.Wrap(services.ErrValidation, "media", "render", "background path required", nil)
	case strings.TrimSpace(s.AudioPath) == "":
		return services.Wrap(services.ErrValidation, "media", "render", "audio path required", nil)
	case strings.TrimSpace(s.SubtitlePath) == "":
		return services.Wrap(services.ErrValidation, "media", "render", "subtitle path required", nil)
	case strings.TrimSpace(s.OutputPath) == "":
		return services.Wrap(services.ErrValidation, "media", "render", "output path required", nil)
	case s.DurationSeconds <= 0:
		return services.Wrap(services.ErrValidation, "media", "render", "duration must be positive", nil)
	}
	return nil
}

func (s RenderSpec) encoders() []string {
	if len(s.Encoders) > 0 {
		return s.Encoders
	}
	return DefaultEncoders
}

// RenderArgs builds the full ffmpeg argument list for the given encoder.
func RenderArgs(spec RenderSpec, encoder string) []string {
	args := []string{"-hide_banner", "-y"}
	if spec.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	if spec.StartSeconds > 0 {
		args = append(args, "-ss", formatSeconds(spec.StartSeconds))
	}
	args = append(args, "-i", spec.BackgroundPath, "-i", spec.AudioPath)

	if spec.AudioDelaySeconds > 0 {
		ms := int(spec.AudioDelaySeconds * 1000)
		args = append(args, "-af", fmt.Sprintf("adelay=%d|%d", ms, ms))
	}

	args = append(args, "-t", formatSeconds(spec.DurationSeconds))

	vf := fmt.Sprintf(
		"scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,ass=filename='%s':original_size=1080x1920",
		FilterPath(spec.SubtitlePath))
	if strings.TrimSpace(spec.FontsDir) != "" {
		vf += fmt.Sprintf(":fontsdir='%s'", FilterPath(spec.FontsDir))
	}
	args = append(args, "-vf", vf)

	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", encoder,
		"-pix_fmt", "yuv420p",
		"-r", "30",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		spec.OutputPath,
	)
	return args
}

// Render produces the final video, trying each encoder in preference order
// until one succeeds. It returns the encoder that was used.
func (t *Tool) Render(ctx context.Context, spec RenderSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}

	var lastErr error
	for _, encoder := range spec.encoders() {
		output, err := t.run(ctx, t.ffmpeg, RenderArgs(spec, encoder)...)
		if err == nil {
			return encoder, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = services.Wrap(services.ErrExternalTool, "media", "render",
			fmt.Sprintf("encoder %s failed: %s", encoder, strings.TrimSpace(string(output))), err)
	}
	return "", lastErr
}
