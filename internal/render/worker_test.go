package render_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nightshift/internal/captions"
	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/render"
	"nightshift/internal/testsupport"
)

type fakeMedia struct {
	durations map[string]float64
	specs     []ffmpeg.RenderSpec
	renderErr error
}

func (f *fakeMedia) Duration(_ context.Context, path string) (float64, error) {
	if d, ok := f.durations[path]; ok {
		return d, nil
	}
	return 0, errors.New("unknown media: " + path)
}

func (f *fakeMedia) Render(_ context.Context, spec ffmpeg.RenderSpec) (string, error) {
	f.specs = append(f.specs, spec)
	if f.renderErr != nil {
		return "", f.renderErr
	}
	if err := os.WriteFile(spec.OutputPath, []byte("video"), 0o644); err != nil {
		return "", err
	}
	return "libx264", nil
}

func writeTimestamps(t *testing.T, dir string, text string) string {
	t.Helper()
	a := &captions.Alignment{}
	ts := 0.0
	for _, r := range text {
		a.Characters = append(a.Characters, string(r))
		a.CharacterStartTimes = append(a.CharacterStartTimes, ts)
		ts += 0.1
		a.CharacterEndTimes = append(a.CharacterEndTimes, ts)
	}
	doc, err := a.Document()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "timestamps_000001.json")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func seedBackground(t *testing.T, cfg *config.Config, customerID, name string) string {
	t.Helper()
	dir := cfg.CustomerBackgroundsDir(customerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("bg"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pendingRenderItem(t *testing.T, store *queue.Store, dir string, duration float64) *queue.Item {
	t.Helper()
	scriptPath := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(scriptPath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	item := testsupport.NewScriptItem(t, store, "cust-1", scriptPath)

	wavPath := filepath.Join(dir, "audio_000001.wav")
	if err := os.WriteFile(wavPath, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	item.WavPath = wavPath
	item.TimestampsPath = writeTimestamps(t, dir, "hi there")
	item.AudioDurationSeconds = duration
	item.Status = queue.StatusPendingRender
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatal(err)
	}
	return item
}

func TestPollOnceRendersAndAdvances(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := t.TempDir()
	item := pendingRenderItem(t, store, dir, 20)
	background := seedBackground(t, cfg, "cust-1", "calm.mp4")

	media := &fakeMedia{durations: map[string]float64{background: 300}}
	worker := render.NewWorker(cfg, store, media, logging.NewNop(),
		render.WithRand(rand.New(rand.NewSource(1))))

	worked, err := worker.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if !worked {
		t.Fatal("expected work")
	}

	updated, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusPendingThumbnail {
		t.Fatalf("status = %s", updated.Status)
	}
	if updated.BackgroundPath != background {
		t.Fatalf("background = %s", updated.BackgroundPath)
	}
	if updated.BackgroundOffsetSeconds == nil {
		t.Fatal("offset not recorded")
	}
	if updated.EndBufferSeconds != cfg.Render.EndBufferSeconds {
		t.Fatalf("end buffer = %v", updated.EndBufferSeconds)
	}
	if filepath.Base(updated.OutputPath) != "rendered_000001.mp4" {
		t.Fatalf("output = %s", updated.OutputPath)
	}

	if len(media.specs) != 1 {
		t.Fatalf("render calls = %d", len(media.specs))
	}
	spec := media.specs[0]
	if spec.AudioDelaySeconds != render.LeadInSeconds {
		t.Fatalf("audio delay = %v", spec.AudioDelaySeconds)
	}
	if spec.DurationSeconds != 20+render.LeadInSeconds {
		t.Fatalf("duration = %v", spec.DurationSeconds)
	}
	if spec.Loop {
		t.Fatal("long background should not loop")
	}
	// 300s background, 31s required span.
	if spec.StartSeconds < 0 || spec.StartSeconds >= 300-(20+render.LeadInSeconds+cfg.Render.EndBufferSeconds) {
		t.Fatalf("start = %v", spec.StartSeconds)
	}

	script, err := os.ReadFile(spec.SubtitlePath)
	if err != nil {
		t.Fatal(err)
	}
	// Captions shift by the lead-in: first word starts at 1.00, not 0.00.
	if !strings.Contains(string(script), "Dialogue: 0,0:00:01.00,") {
		t.Fatalf("captions not shifted by lead-in:\n%s", script)
	}
}

func TestPollOnceLoopsShortBackground(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pendingRenderItem(t, store, t.TempDir(), 60)
	background := seedBackground(t, cfg, "cust-1", "short.mp4")

	media := &fakeMedia{durations: map[string]float64{background: 30}}
	worker := render.NewWorker(cfg, store, media, logging.NewNop())

	if _, err := worker.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	spec := media.specs[0]
	if !spec.Loop || spec.StartSeconds != 0 {
		t.Fatalf("short background must loop from zero: %+v", spec)
	}
}

func TestPollOnceReusesRecordedOffset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := t.TempDir()
	item := pendingRenderItem(t, store, dir, 10)
	background := seedBackground(t, cfg, "cust-1", "calm.mp4")

	offset := 42.0
	item.BackgroundOffsetSeconds = &offset
	item.OutputPath = background // recorded pick from an earlier attempt
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatal(err)
	}

	media := &fakeMedia{durations: map[string]float64{background: 300}}
	worker := render.NewWorker(cfg, store, media, logging.NewNop())
	if _, err := worker.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if got := media.specs[0].StartSeconds; got != 42.0 {
		t.Fatalf("start = %v, want recorded offset", got)
	}
}

func TestPollOnceDiscardsStaleOffset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := t.TempDir()
	item := pendingRenderItem(t, store, dir, 40)
	background := seedBackground(t, cfg, "cust-1", "calm.mp4")

	offset := 42.0
	item.BackgroundOffsetSeconds = &offset
	item.OutputPath = background
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatal(err)
	}

	// 40+1+10 required, 42 offset: 60s background cannot cover it.
	media := &fakeMedia{durations: map[string]float64{background: 60}}
	worker := render.NewWorker(cfg, store, media, logging.NewNop())
	if _, err := worker.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	spec := media.specs[0]
	if !spec.Loop || spec.StartSeconds != 0 {
		t.Fatalf("stale offset must loop from zero: %+v", spec)
	}
}

func TestPollOncePersistsBackgroundChoiceBeforeRender(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := pendingRenderItem(t, store, t.TempDir(), 10)
	background := seedBackground(t, cfg, "cust-1", "calm.mp4")

	media := &fakeMedia{durations: map[string]float64{background: 300}, renderErr: errors.New("encoder exploded")}
	worker := render.NewWorker(cfg, store, media, logging.NewNop())

	if _, err := worker.PollOnce(context.Background()); err == nil {
		t.Fatal("expected render error")
	}

	updated, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusPendingRender {
		t.Fatalf("status = %s", updated.Status)
	}
	// The random pick survives the failed attempt.
	if updated.OutputPath != background {
		t.Fatalf("persisted pick = %s", updated.OutputPath)
	}
}

func TestPollOnceFallsBackToSharedPool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pendingRenderItem(t, store, t.TempDir(), 10)

	shared := filepath.Join(cfg.SharedBackgroundsDir(), "pool.mp4")
	if err := os.MkdirAll(cfg.SharedBackgroundsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shared, []byte("bg"), 0o644); err != nil {
		t.Fatal(err)
	}

	media := &fakeMedia{durations: map[string]float64{shared: 120}}
	worker := render.NewWorker(cfg, store, media, logging.NewNop())
	if _, err := worker.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if media.specs[0].BackgroundPath != shared {
		t.Fatalf("background = %s", media.specs[0].BackgroundPath)
	}
}

func TestPollOnceStallsWithoutBackgrounds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := pendingRenderItem(t, store, t.TempDir(), 10)

	worker := render.NewWorker(cfg, store, &fakeMedia{}, logging.NewNop())
	worked, err := worker.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("configuration gap should stall, not error: %v", err)
	}
	if worked {
		t.Fatal("no work should be reported")
	}

	updated, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusPendingRender {
		t.Fatalf("status = %s", updated.Status)
	}
}
