package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"nightshift/internal/services"
)

// ThumbnailSpec describes one poster frame: a single video frame graded,
// darkened, and overlaid with centered text.
type ThumbnailSpec struct {
	InputPath  string
	OutputPath string

	// TimestampSeconds selects the frame to grab.
	TimestampSeconds float64
	Text             string
	FontPath         string
	FontSize         int
	// OverlayDarkness is the opacity of the full-frame darkening box.
	OverlayDarkness float64
	BorderWidth     int
}

func (s ThumbnailSpec) validate() error {
	switch {
	case strings.TrimSpace(s.InputPath) == "":
		return services.Wrap(services.ErrValidation, "media", "thumbnail", "input path required", nil)
	case strings.TrimSpace(s.OutputPath) == "":
		return services.Wrap(services.ErrValidation, "media", "thumbnail", "output path required", nil)
	case strings.TrimSpace(s.Text) == "":
		return services.Wrap(services.ErrValidation, "media", "thumbnail", "overlay text required", nil)
	case s.FontSize <= 0:
		return services.Wrap(services.ErrValidation, "media", "thumbnail", "font size must be positive", nil)
	}
	return nil
}

// ThumbnailArgs builds the ffmpeg argument list for a thumbnail render.
func ThumbnailArgs(spec ThumbnailSpec) []string {
	vf := fmt.Sprintf(
		"scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,"+
			"eq=saturation=1.35:contrast=1.05,"+
			"drawbox=x=0:y=0:w=iw:h=ih:color=black@%.2f:t=fill,"+
			"drawtext=fontfile='%s':text='%s':fontsize=%d:fontcolor=#FFCC00:"+
			"borderw=%d:bordercolor=black:shadowx=2:shadowy=2:shadowcolor=black@0.6:"+
			"line_spacing=18:box=1:boxcolor=black@0.22:boxborderw=28:"+
			"x=(w-text_w)/2:y=(h-text_h)/2",
		spec.OverlayDarkness,
		FilterPath(spec.FontPath),
		DrawtextEscape(spec.Text),
		spec.FontSize,
		spec.BorderWidth,
	)

	return []string{
		"-hide_banner", "-y",
		"-ss", formatSeconds(spec.TimestampSeconds),
		"-i", spec.InputPath,
		"-vframes", "1",
		"-vf", vf,
		spec.OutputPath,
	}
}

// Thumbnail grabs and renders a single poster frame.
func (t *Tool) Thumbnail(ctx context.Context, spec ThumbnailSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	output, err := t.run(ctx, t.ffmpeg, ThumbnailArgs(spec)...)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "thumbnail",
			"ffmpeg drawtext failed: "+strings.TrimSpace(string(output)), err)
	}
	return nil
}
