// Package thumbnail renders poster frames for finished videos: stacked
// script words for generated items, part labels for premade segments.
package thumbnail

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/services"
)

const (
	generatedTimestampFraction = 0.35
	generatedOverlayDarkness   = 0.42
	generatedBorderWidth       = 12
	maxOverlayLines            = 4
)

// MediaTool is the subset of the ffmpeg wrapper the thumbnail stages need.
type MediaTool interface {
	Duration(ctx context.Context, path string) (float64, error)
	Thumbnail(ctx context.Context, spec ffmpeg.ThumbnailSpec) error
}

// GeneratedWorker thumbnails generated items and marks them ready.
type GeneratedWorker struct {
	cfg      *config.Config
	store    *queue.Store
	media    MediaTool
	logger   *slog.Logger
	interval time.Duration
}

// NewGeneratedWorker constructs the generated thumbnail stage.
func NewGeneratedWorker(cfg *config.Config, store *queue.Store, media MediaTool, logger *slog.Logger) *GeneratedWorker {
	return &GeneratedWorker{
		cfg:      cfg,
		store:    store,
		media:    media,
		logger:   logging.NewComponentLogger(logger, "thumbnail"),
		interval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
	}
}

// Name identifies the worker in logs.
func (w *GeneratedWorker) Name() string { return "thumbnail" }

// PollInterval returns the idle sleep between polls.
func (w *GeneratedWorker) PollInterval() time.Duration { return w.interval }

// PollOnce processes at most one item.
func (w *GeneratedWorker) PollOnce(ctx context.Context) (bool, error) {
	item, err := w.store.NextForStage(ctx, queue.SourceGenerated, queue.StatusPendingThumbnail)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, w.logger)

	if err := w.process(ctx, item); err != nil {
		logger.Error("thumbnail failed", logging.Error(err))
		if services.IsPermanent(err) {
			return false, nil
		}
		return false, err
	}
	logger.Info("thumbnail ready", logging.String("thumbnail", item.ThumbnailPath))
	return true, nil
}

func (w *GeneratedWorker) process(ctx context.Context, item *queue.Item) error {
	if item.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "thumbnail", "prepare", "item has no rendered output", nil)
	}

	text, err := overlayTextFromScript(item.ScriptPath)
	if err != nil {
		return err
	}

	duration, err := w.media.Duration(ctx, item.OutputPath)
	if err != nil {
		return err
	}

	thumbPath := filepath.Join(filepath.Dir(item.OutputPath), fmt.Sprintf("thumb_%06d.jpg", item.ID))
	spec := ffmpeg.ThumbnailSpec{
		InputPath:        item.OutputPath,
		OutputPath:       thumbPath,
		TimestampSeconds: math.Max(1.0, duration*generatedTimestampFraction),
		Text:             text,
		FontPath:         w.cfg.Thumbnails.FontPath,
		FontSize:         ChooseFontSize(text, GeneratedFontSizes),
		OverlayDarkness:  generatedOverlayDarkness,
		BorderWidth:      generatedBorderWidth,
	}
	if err := w.media.Thumbnail(ctx, spec); err != nil {
		return err
	}

	item.ThumbnailPath = thumbPath
	item.Status = queue.StatusReady
	return w.store.Update(ctx, item)
}

func overlayTextFromScript(scriptPath string) (string, error) {
	if scriptPath == "" {
		return OneWordPerLine("", maxOverlayLines), nil
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "thumbnail", "read script", "script not readable", err)
	}
	sentence := ExtractFirstSentence(string(data))
	return OneWordPerLine(Stylize(sentence), maxOverlayLines), nil
}
