// Package render composites narration over a background video with
// burned-in captions.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"nightshift/internal/captions"
	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/services"
)

// LeadInSeconds is the silent hold before narration starts. It delays the
// audio track, shifts every caption, and extends the output duration.
const LeadInSeconds = 1.0

// MediaTool is the subset of the ffmpeg wrapper the render stage needs.
type MediaTool interface {
	Duration(ctx context.Context, path string) (float64, error)
	Render(ctx context.Context, spec ffmpeg.RenderSpec) (string, error)
}

// Worker claims pending_render items and produces the final video.
type Worker struct {
	cfg      *config.Config
	store    *queue.Store
	media    MediaTool
	logger   *slog.Logger
	interval time.Duration
	rng      *rand.Rand
}

// Option customizes the worker.
type Option func(*Worker)

// WithRand overrides the offset randomness source (useful for tests).
func WithRand(rng *rand.Rand) Option {
	return func(w *Worker) {
		if rng != nil {
			w.rng = rng
		}
	}
}

// NewWorker constructs the render stage.
func NewWorker(cfg *config.Config, store *queue.Store, media MediaTool, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		cfg:      cfg,
		store:    store,
		media:    media,
		logger:   logging.NewComponentLogger(logger, "render"),
		interval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name identifies the worker in logs.
func (w *Worker) Name() string { return "render" }

// PollInterval returns the idle sleep between polls.
func (w *Worker) PollInterval() time.Duration { return w.interval }

// PollOnce processes at most one item.
func (w *Worker) PollOnce(ctx context.Context) (bool, error) {
	item, err := w.store.NextForStage(ctx, queue.SourceGenerated, queue.StatusPendingRender)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, w.logger)

	if err := w.process(ctx, logger, item); err != nil {
		logger.Error("render failed", logging.Error(err))
		if services.IsPermanent(err) {
			return false, nil
		}
		return false, err
	}
	logger.Info("video rendered",
		logging.String("output", item.OutputPath),
		logging.String("background", item.BackgroundPath))
	return true, nil
}

func (w *Worker) process(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	if item.AudioDurationSeconds <= 0 {
		return services.Wrap(services.ErrValidation, "render", "prepare", "item has no audio duration", nil)
	}
	if item.WavPath == "" {
		return services.Wrap(services.ErrValidation, "render", "prepare", "item has no narration audio", nil)
	}

	background, err := w.ensureBackground(ctx, item)
	if err != nil {
		return err
	}

	bgDuration, err := w.media.Duration(ctx, background)
	if err != nil {
		return err
	}

	endBuffer := w.cfg.Render.EndBufferSeconds
	required := item.AudioDurationSeconds + LeadInSeconds + endBuffer
	start, loop := w.chooseOffset(logger, item, bgDuration, required)

	assPath, err := w.writeCaptions(item)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(filepath.Dir(item.WavPath), fmt.Sprintf("rendered_%06d.mp4", item.ID))
	spec := ffmpeg.RenderSpec{
		BackgroundPath:    background,
		AudioPath:         item.WavPath,
		SubtitlePath:      assPath,
		OutputPath:        outputPath,
		StartSeconds:      start,
		Loop:              loop,
		AudioDelaySeconds: LeadInSeconds,
		DurationSeconds:   item.AudioDurationSeconds + LeadInSeconds,
		FontsDir:          w.cfg.Render.FontsDir,
		Encoders:          w.cfg.Render.Encoders,
	}
	encoder, err := w.media.Render(ctx, spec)
	if err != nil {
		return err
	}
	logger.Debug("encode complete", logging.String("encoder", encoder))

	item.BackgroundPath = background
	item.BackgroundOffsetSeconds = &start
	item.EndBufferSeconds = endBuffer
	item.OutputPath = outputPath
	item.Status = queue.StatusPendingThumbnail
	return w.store.Update(ctx, item)
}

// ensureBackground returns the chosen background, persisting a fresh random
// pick into OutputPath so a crash mid-render resumes with the same video.
func (w *Worker) ensureBackground(ctx context.Context, item *queue.Item) (string, error) {
	if item.OutputPath != "" {
		if _, err := os.Stat(item.OutputPath); err == nil {
			return item.OutputPath, nil
		}
	}

	background, err := pickBackground(w.cfg, item.CustomerID, w.rng)
	if err != nil {
		return "", err
	}
	item.OutputPath = background
	if err := w.store.Update(ctx, item); err != nil {
		return "", err
	}
	return background, nil
}

// chooseOffset reuses a recorded offset while it still covers the required
// span, otherwise picks a random seek or falls back to looping from zero.
func (w *Worker) chooseOffset(logger *slog.Logger, item *queue.Item, bgDuration, required float64) (float64, bool) {
	if item.BackgroundOffsetSeconds != nil {
		explicit := *item.BackgroundOffsetSeconds
		if bgDuration > explicit+required {
			return explicit, false
		}
		logger.Warn("recorded offset no longer covers narration; looping from start",
			logging.Float64("offset", explicit),
			logging.Float64("background_duration", bgDuration),
			logging.Float64("required", required))
		return 0, true
	}

	maxStart := bgDuration - required
	if maxStart > 0 {
		return w.rng.Float64() * maxStart, false
	}
	return 0, true
}

func (w *Worker) writeCaptions(item *queue.Item) (string, error) {
	if item.TimestampsPath == "" {
		return "", services.Wrap(services.ErrValidation, "render", "captions", "item has no timestamps", nil)
	}
	data, err := os.ReadFile(item.TimestampsPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "captions", "timestamps not readable", err)
	}
	alignment, err := captions.ParseAlignment(data)
	if err != nil {
		return "", err
	}
	words, err := captions.Words(alignment)
	if err != nil {
		return "", err
	}

	chunks := captions.ChunkOneWord(words, LeadInSeconds+w.cfg.Captions.TimeOffsetSeconds)
	script := captions.GenerateASS(chunks, w.captionStyle())

	assPath := filepath.Join(filepath.Dir(item.WavPath), fmt.Sprintf("captions_%06d.ass", item.ID))
	if err := os.WriteFile(assPath, []byte(script), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "captions", "write subtitle file", err)
	}
	return assPath, nil
}

func (w *Worker) captionStyle() captions.Style {
	style := captions.DefaultStyle()
	if w.cfg.Captions.FontName != "" {
		style.FontName = w.cfg.Captions.FontName
	}
	if w.cfg.Captions.FontSize > 0 {
		style.FontSize = w.cfg.Captions.FontSize
	}
	if w.cfg.Captions.Preset != "" {
		style.Preset = w.cfg.Captions.Preset
	}
	return style
}
