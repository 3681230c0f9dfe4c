package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nightshift/internal/captions"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/render"
	"nightshift/internal/scheduler"
	"nightshift/internal/services/elevenlabs"
	"nightshift/internal/services/postiz"
	"nightshift/internal/testsupport"
	"nightshift/internal/thumbnail"
	"nightshift/internal/tts"
)

type pipelineSynth struct{}

func (pipelineSynth) Synthesize(_ context.Context, text string) (*elevenlabs.Synthesis, error) {
	alignment := &captions.Alignment{}
	ts := 0.0
	for _, r := range text {
		alignment.Characters = append(alignment.Characters, string(r))
		alignment.CharacterStartTimes = append(alignment.CharacterStartTimes, ts)
		ts += 0.1
		alignment.CharacterEndTimes = append(alignment.CharacterEndTimes, ts)
	}
	return &elevenlabs.Synthesis{
		Audio:        make([]byte, 48000),
		Alignment:    alignment,
		OutputFormat: "pcm_24000",
	}, nil
}

type pipelineMedia struct{}

func (pipelineMedia) Duration(context.Context, string) (float64, error) { return 120, nil }

func (pipelineMedia) Render(_ context.Context, spec ffmpeg.RenderSpec) (string, error) {
	if err := os.WriteFile(spec.OutputPath, []byte("video"), 0o644); err != nil {
		return "", err
	}
	return "libx264", nil
}

func (pipelineMedia) Thumbnail(_ context.Context, spec ffmpeg.ThumbnailSpec) error {
	return os.WriteFile(spec.OutputPath, []byte("jpg"), 0o644)
}

type pipelinePoster struct {
	scheduled int
}

func (p *pipelinePoster) ListIntegrations(context.Context) ([]postiz.Integration, error) {
	return []postiz.Integration{{ID: "int-yt", Identifier: "youtube"}}, nil
}

func (p *pipelinePoster) Upload(_ context.Context, path string) (*postiz.UploadedAsset, error) {
	return &postiz.UploadedAsset{ID: "asset", Path: "/uploads/" + filepath.Base(path)}, nil
}

func (p *pipelinePoster) Schedule(_ context.Context, bundle postiz.ScheduleBundle) ([]postiz.ScheduledPost, error) {
	p.scheduled++
	return []postiz.ScheduledPost{{PostID: "post-1"}}, nil
}

// A generated item walks every stage exactly once and ends fully populated
// and ineligible for further work.
func TestGeneratedItemRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	bgDir := cfg.CustomerBackgroundsDir("cust-1")
	if err := os.MkdirAll(bgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bgDir, "calm.mp4"), []byte("bg"), 0o644); err != nil {
		t.Fatal(err)
	}

	scriptPath := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(scriptPath, []byte("hello there"), 0o644); err != nil {
		t.Fatal(err)
	}
	item := testsupport.NewScriptItem(t, store, "cust-1", scriptPath)

	media := pipelineMedia{}
	poster := &pipelinePoster{}
	clock := func() time.Time { return time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC) }
	logger := logging.NewNop()

	ttsWorker := tts.NewWorker(cfg, store, pipelineSynth{}, logger)
	renderWorker := render.NewWorker(cfg, store, media, logger)
	thumbWorker := thumbnail.NewGeneratedWorker(cfg, store, media, logger)
	schedWorker := scheduler.NewWorker(cfg, store, poster, logger, scheduler.WithClock(clock))

	stages := []interface {
		PollOnce(context.Context) (bool, error)
	}{ttsWorker, renderWorker, thumbWorker, schedWorker}

	for i, stage := range stages {
		worked, err := stage.PollOnce(context.Background())
		if err != nil || !worked {
			t.Fatalf("stage %d PollOnce = (%v, %v)", i+1, worked, err)
		}
	}

	final, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != queue.StatusScheduled {
		t.Fatalf("status = %s", final.Status)
	}
	if final.WavPath == "" || final.TimestampsPath == "" || final.OutputPath == "" || final.ThumbnailPath == "" {
		t.Fatalf("artifacts incomplete: %+v", final)
	}
	if final.BackgroundPath == "" || final.BackgroundOffsetSeconds == nil {
		t.Fatalf("background record incomplete: %+v", final)
	}
	if poster.scheduled != 1 {
		t.Fatalf("provider schedules = %d", poster.scheduled)
	}

	// Every stage is idle now: the item is ineligible everywhere.
	for i, stage := range stages {
		worked, err := stage.PollOnce(context.Background())
		if err != nil || worked {
			t.Fatalf("stage %d should be idle, got (%v, %v)", i+1, worked, err)
		}
	}
}
