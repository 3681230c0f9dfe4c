package thumbnail

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/services"
)

// Premade styling is shared with the splitter, which pre-renders segment
// thumbnails at split time.
const (
	PremadeTimestampFraction = 0.20
	PremadeOverlayDarkness   = 0.45
	PremadeBorderWidth       = 14
)

// PartLabel names a segment within its series.
func PartLabel(index, count int) string {
	if count > 1 && index == count {
		return "FINAL PART"
	}
	return fmt.Sprintf("PART %d", index)
}

// PremadeWorker thumbnails premade segments. The splitter usually rendered
// the thumbnail already; an existing file is adopted without re-rendering.
type PremadeWorker struct {
	cfg      *config.Config
	store    *queue.Store
	media    MediaTool
	logger   *slog.Logger
	interval time.Duration
}

// NewPremadeWorker constructs the premade thumbnail stage.
func NewPremadeWorker(cfg *config.Config, store *queue.Store, media MediaTool, logger *slog.Logger) *PremadeWorker {
	return &PremadeWorker{
		cfg:      cfg,
		store:    store,
		media:    media,
		logger:   logging.NewComponentLogger(logger, "premade-thumbnail"),
		interval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
	}
}

// Name identifies the worker in logs.
func (w *PremadeWorker) Name() string { return "premade-thumbnail" }

// PollInterval returns the idle sleep between polls.
func (w *PremadeWorker) PollInterval() time.Duration { return w.interval }

// PollOnce processes at most one item.
func (w *PremadeWorker) PollOnce(ctx context.Context) (bool, error) {
	item, err := w.store.NextForStage(ctx, queue.SourcePremadeSegment, queue.StatusPendingThumbnail)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	ctx = services.WithItemID(ctx, item.ID)
	if item.SeriesID != "" {
		ctx = services.WithSeriesID(ctx, item.SeriesID)
	}
	logger := logging.WithContext(ctx, w.logger)

	if err := w.process(ctx, logger, item); err != nil {
		logger.Error("thumbnail failed", logging.Error(err))
		if services.IsPermanent(err) {
			return false, nil
		}
		return false, err
	}
	logger.Info("segment ready", logging.String("thumbnail", item.ThumbnailPath))
	return true, nil
}

func (w *PremadeWorker) process(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	if item.OutputPath == "" || item.SeriesIndex <= 0 || item.SeriesCount <= 0 {
		return services.Wrap(services.ErrValidation, "thumbnail", "prepare", "segment missing output or series identity", nil)
	}

	if item.ThumbnailPath != "" {
		if _, err := os.Stat(item.ThumbnailPath); err == nil {
			logger.Debug("adopting existing thumbnail")
			item.Status = queue.StatusReady
			return w.store.Update(ctx, item)
		}
	}

	thumbPath := strings.TrimSpace(item.ThumbnailPath)
	if thumbPath == "" {
		thumbPath = filepath.Join(filepath.Dir(item.OutputPath),
			fmt.Sprintf("thumb_part_%03d.jpg", item.SeriesIndex))
	}

	duration, err := w.media.Duration(ctx, item.OutputPath)
	if err != nil {
		return err
	}

	label := PartLabel(item.SeriesIndex, item.SeriesCount)
	spec := ffmpeg.ThumbnailSpec{
		InputPath:        item.OutputPath,
		OutputPath:       thumbPath,
		TimestampSeconds: math.Max(1.0, duration*PremadeTimestampFraction),
		Text:             label,
		FontPath:         w.cfg.Thumbnails.FontPath,
		FontSize:         ChooseFontSize(label, PremadeFontSizes),
		OverlayDarkness:  PremadeOverlayDarkness,
		BorderWidth:      PremadeBorderWidth,
	}
	if err := w.media.Thumbnail(ctx, spec); err != nil {
		return err
	}

	item.ThumbnailPath = thumbPath
	item.Status = queue.StatusReady
	return w.store.Update(ctx, item)
}
