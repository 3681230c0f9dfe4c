package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/services"
)

type call struct {
	name string
	args []string
}

func newRecordingTool(t *testing.T, output string, err error) (*ffmpeg.Tool, *[]call) {
	t.Helper()
	var calls []call
	tool := ffmpeg.New(ffmpeg.WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		return []byte(output), err
	}))
	return tool, &calls
}

func argString(args []string) string {
	return strings.Join(args, " ")
}

func TestDurationParsesProbeOutput(t *testing.T) {
	tool, calls := newRecordingTool(t, "95.43\n", nil)

	duration, err := tool.Duration(context.Background(), "/video/in.mp4")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if duration != 95.43 {
		t.Fatalf("duration = %v", duration)
	}

	got := argString((*calls)[0].args)
	if (*calls)[0].name != "ffprobe" {
		t.Fatalf("binary = %s", (*calls)[0].name)
	}
	if !strings.Contains(got, "format=duration") || !strings.Contains(got, "noprint_wrappers=1:nokey=1") {
		t.Fatalf("probe args = %s", got)
	}
}

func TestDurationRejectsGarbageOutput(t *testing.T) {
	tool, _ := newRecordingTool(t, "N/A\n", nil)
	if _, err := tool.Duration(context.Background(), "/video/in.mp4"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRenderArgsFullSpec(t *testing.T) {
	spec := ffmpeg.RenderSpec{
		BackgroundPath:    "/bg/clip.mp4",
		AudioPath:         "/work/audio_000001.wav",
		SubtitlePath:      "/work/captions_000001.ass",
		OutputPath:        "/work/rendered_000001.mp4",
		StartSeconds:      12.5,
		AudioDelaySeconds: 1.0,
		DurationSeconds:   33.25,
		FontsDir:          "/fonts",
	}

	got := argString(ffmpeg.RenderArgs(spec, "libx264"))
	for _, want := range []string{
		"-ss 12.500",
		"-i /bg/clip.mp4 -i /work/audio_000001.wav",
		"-af adelay=1000|1000",
		"-t 33.250",
		"scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920",
		`ass=filename='/work/captions_000001.ass':original_size=1080x1920:fontsdir='/fonts'`,
		"-map 0:v:0 -map 1:a:0",
		"-c:v libx264 -pix_fmt yuv420p -r 30 -c:a aac -b:a 192k -shortest",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("args missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "-stream_loop") {
		t.Fatalf("unexpected loop flag:\n%s", got)
	}
}

func TestRenderArgsLoopWithoutSeek(t *testing.T) {
	spec := ffmpeg.RenderSpec{
		BackgroundPath:  "/bg/short.mp4",
		AudioPath:       "/work/a.wav",
		SubtitlePath:    "/work/c.ass",
		OutputPath:      "/work/out.mp4",
		Loop:            true,
		DurationSeconds: 60,
	}

	got := argString(ffmpeg.RenderArgs(spec, "libx264"))
	if !strings.HasPrefix(got, "-hide_banner -y -stream_loop -1 -i ") {
		t.Fatalf("loop flag must precede the background input:\n%s", got)
	}
	if strings.Contains(got, "-ss") || strings.Contains(got, "-af") {
		t.Fatalf("unexpected seek or delay:\n%s", got)
	}
}

func TestRenderFallsThroughEncoders(t *testing.T) {
	var calls []call
	tool := ffmpeg.New(ffmpeg.WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		if len(calls) < 3 {
			return []byte("encoder not found"), errors.New("exit status 1")
		}
		return nil, nil
	}))

	spec := ffmpeg.RenderSpec{
		BackgroundPath:  "/bg/clip.mp4",
		AudioPath:       "/a.wav",
		SubtitlePath:    "/c.ass",
		OutputPath:      "/out.mp4",
		DurationSeconds: 10,
	}
	encoder, err := tool.Render(context.Background(), spec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if encoder != "libx264" {
		t.Fatalf("encoder = %s", encoder)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(calls))
	}
	if !strings.Contains(argString(calls[0].args), "h264_v4l2m2m") {
		t.Fatalf("first attempt should use hardware encoder: %s", argString(calls[0].args))
	}
}

func TestRenderReturnsLastEncoderError(t *testing.T) {
	tool, _ := newRecordingTool(t, "boom", errors.New("exit status 1"))
	spec := ffmpeg.RenderSpec{
		BackgroundPath:  "/bg.mp4",
		AudioPath:       "/a.wav",
		SubtitlePath:    "/c.ass",
		OutputPath:      "/out.mp4",
		DurationSeconds: 10,
		Encoders:        []string{"libx264"},
	}
	_, err := tool.Render(context.Background(), spec)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "libx264") {
		t.Fatalf("error should name the encoder: %v", err)
	}
}

func TestSplitBuildsSegmentArgsAndListsParts(t *testing.T) {
	dir := t.TempDir()
	var got []string
	tool := ffmpeg.New(ffmpeg.WithRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		got = args
		for _, name := range []string{"part_001.mp4", "part_002.mp4", "part_003.mp4"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		return nil, nil
	}))

	parts, err := tool.Split(context.Background(), "/src/full.mp4", dir, 60)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 3 || filepath.Base(parts[0]) != "part_001.mp4" || filepath.Base(parts[2]) != "part_003.mp4" {
		t.Fatalf("parts = %v", parts)
	}

	joined := argString(got)
	for _, want := range []string{
		"-c copy", "-map 0", "-f segment",
		"-segment_time 60", "-segment_start_number 1", "-reset_timestamps 1",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("split args missing %q:\n%s", want, joined)
		}
	}
}

func TestSplitFailsWhenNoSegmentsProduced(t *testing.T) {
	tool, _ := newRecordingTool(t, "", nil)
	if _, err := tool.Split(context.Background(), "/src.mp4", t.TempDir(), 60); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestConcatWritesQuotedListFile(t *testing.T) {
	dir := t.TempDir()
	var listContents string
	tool := ffmpeg.New(ffmpeg.WithRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		for i, arg := range args {
			if arg == "-i" && i+1 < len(args) {
				data, err := os.ReadFile(args[i+1])
				if err != nil {
					t.Fatal(err)
				}
				listContents = string(data)
			}
		}
		return nil, nil
	}))

	inputs := []string{filepath.Join(dir, "part_002.mp4"), filepath.Join(dir, "it's.mp4")}
	if err := tool.Concat(context.Background(), inputs, filepath.Join(dir, "merged.mp4")); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if !strings.Contains(listContents, "part_002.mp4'") {
		t.Fatalf("list missing first input:\n%s", listContents)
	}
	if !strings.Contains(listContents, `it'\''s.mp4`) {
		t.Fatalf("single quote not escaped:\n%s", listContents)
	}
}

func TestThumbnailArgs(t *testing.T) {
	spec := ffmpeg.ThumbnailSpec{
		InputPath:        "/work/rendered.mp4",
		OutputPath:       "/work/thumb.jpg",
		TimestampSeconds: 4.2,
		Text:             "FIRST\nLINE",
		FontPath:         "/fonts/Bowlby.ttf",
		FontSize:         150,
		OverlayDarkness:  0.42,
		BorderWidth:      12,
	}

	got := argString(ffmpeg.ThumbnailArgs(spec))
	for _, want := range []string{
		"-ss 4.200",
		"-vframes 1",
		"eq=saturation=1.35:contrast=1.05",
		"drawbox=x=0:y=0:w=iw:h=ih:color=black@0.42:t=fill",
		`fontfile='/fonts/Bowlby.ttf'`,
		`text='FIRST\nLINE'`,
		"fontsize=150",
		"fontcolor=#FFCC00",
		"borderw=12",
		"x=(w-text_w)/2:y=(h-text_h)/2",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("thumbnail args missing %q:\n%s", want, got)
		}
	}
}

func TestFilterPathEscaping(t *testing.T) {
	if got := ffmpeg.FilterPath(`C:\fonts\it's.ttf`); got != `C\:/fonts/it\'s.ttf` {
		t.Fatalf("FilterPath = %q", got)
	}
}

func TestDrawtextEscaping(t *testing.T) {
	if got := ffmpeg.DrawtextEscape("a:b'c\r\nd"); got != `a\:b\'c\nd` {
		t.Fatalf("DrawtextEscape = %q", got)
	}
}
