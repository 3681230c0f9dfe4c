// Package splitter leases pending premade series, cuts the source into
// segments, and fans out one work item per segment.
package splitter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/services"
	"nightshift/internal/thumbnail"
)

const maxOwnerLength = 64

// MediaTool is the subset of the ffmpeg wrapper the splitter needs.
type MediaTool interface {
	Duration(ctx context.Context, path string) (float64, error)
	Split(ctx context.Context, source, outDir string, segmentSeconds int) ([]string, error)
	Concat(ctx context.Context, inputs []string, output string) error
	Thumbnail(ctx context.Context, spec ffmpeg.ThumbnailSpec) error
}

// Worker claims pending_split series and produces their segment items.
type Worker struct {
	cfg      *config.Config
	store    *queue.Store
	media    MediaTool
	logger   *slog.Logger
	owner    string
	leaseTTL time.Duration
	interval time.Duration
}

// NewWorker constructs the fan-out claim worker with a unique identity.
func NewWorker(cfg *config.Config, store *queue.Store, media MediaTool, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    store,
		media:    media,
		logger:   logging.NewComponentLogger(logger, "splitter"),
		owner:    ownerIdentity(),
		leaseTTL: time.Duration(cfg.Workflow.LeaseTTLMinutes) * time.Minute,
		interval: time.Duration(cfg.Workflow.SplitterPollIntervalSeconds) * time.Second,
	}
}

func ownerIdentity() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	owner := fmt.Sprintf("splitter:%s:%s", hostname, uuid.NewString())
	if len(owner) > maxOwnerLength {
		owner = owner[:maxOwnerLength]
	}
	return owner
}

// Name identifies the worker in logs.
func (w *Worker) Name() string { return "splitter" }

// PollInterval returns the idle sleep between polls.
func (w *Worker) PollInterval() time.Duration { return w.interval }

// PollOnce claims and processes at most one series. Processing failures are
// terminal: they are recorded on the series row, not retried.
func (w *Worker) PollOnce(ctx context.Context) (bool, error) {
	series, err := w.store.ClaimNextPendingSplit(ctx, w.owner, w.leaseTTL)
	if err != nil {
		return false, err
	}
	if series == nil {
		return false, nil
	}

	ctx = services.WithSeriesID(ctx, series.ID)
	logger := logging.WithContext(ctx, w.logger)
	logger.Info("series claimed", logging.String("source", series.SourcePath))

	if err := w.process(ctx, series); err != nil {
		logger.Error("split failed; series marked failed", logging.Error(err))
		if markErr := w.store.MarkSeriesFailed(ctx, series.ID, err.Error()); markErr != nil {
			return true, markErr
		}
		return true, nil
	}
	logger.Info("series split complete")
	return true, nil
}

func (w *Worker) process(ctx context.Context, series *queue.Series) error {
	if _, err := os.Stat(series.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, "splitter", "verify source", "source file not found", err)
	}

	outDir := filepath.Join(filepath.Dir(series.SourcePath), "segments", series.ID)
	parts, err := w.media.Split(ctx, series.SourcePath, outDir, int(series.SegmentSeconds))
	if err != nil {
		return err
	}

	durations := make([]float64, len(parts))
	for i, part := range parts {
		if durations[i], err = w.media.Duration(ctx, part); err != nil {
			return err
		}
	}

	if ShouldMergeTrailing(durations, series.SegmentSeconds) {
		if parts, durations, err = w.mergeTrailing(ctx, parts, durations); err != nil {
			return err
		}
	}

	count := len(parts)
	thumbs := make([]string, count)
	for i, part := range parts {
		thumbs[i], err = w.renderSegmentThumbnail(ctx, part, outDir, i+1, count, durations[i])
		if err != nil {
			return err
		}
	}

	if _, err := w.store.DeleteSeriesItems(ctx, series.ID); err != nil {
		return err
	}
	for i, part := range parts {
		segment := &queue.Item{
			CustomerID:          series.CustomerID,
			SeriesID:            series.ID,
			SeriesIndex:         i + 1,
			SeriesCount:         count,
			TargetIntegrationID: series.TargetIntegrationID,
			OutputPath:          part,
			ThumbnailPath:       thumbs[i],
		}
		if _, err := w.store.InsertSegmentItem(ctx, segment); err != nil {
			return err
		}
	}

	return w.store.MarkSplitComplete(ctx, series.ID)
}

// mergeTrailing folds the final short segment into the penultimate one and
// keeps the part numbering contiguous.
func (w *Worker) mergeTrailing(ctx context.Context, parts []string, durations []float64) ([]string, []float64, error) {
	n := len(parts)
	penultimate, last := parts[n-2], parts[n-1]

	merged := filepath.Join(filepath.Dir(penultimate), "merged_tail.mp4")
	if err := w.media.Concat(ctx, []string{penultimate, last}, merged); err != nil {
		return nil, nil, err
	}
	if err := os.Remove(last); err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "splitter", "merge remainder", "remove trailing segment", err)
	}
	if err := os.Rename(merged, penultimate); err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "splitter", "merge remainder", "replace penultimate segment", err)
	}

	durations[n-2] += durations[n-1]
	return parts[:n-1], durations[:n-1], nil
}

func (w *Worker) renderSegmentThumbnail(ctx context.Context, part, outDir string, index, count int, duration float64) (string, error) {
	label := thumbnail.PartLabel(index, count)
	thumbPath := filepath.Join(outDir, fmt.Sprintf("thumb_part_%03d.jpg", index))
	spec := ffmpeg.ThumbnailSpec{
		InputPath:        part,
		OutputPath:       thumbPath,
		TimestampSeconds: math.Max(1.0, duration*thumbnail.PremadeTimestampFraction),
		Text:             label,
		FontPath:         w.cfg.Thumbnails.FontPath,
		FontSize:         thumbnail.ChooseFontSize(label, thumbnail.PremadeFontSizes),
		OverlayDarkness:  thumbnail.PremadeOverlayDarkness,
		BorderWidth:      thumbnail.PremadeBorderWidth,
	}
	if err := w.media.Thumbnail(ctx, spec); err != nil {
		return "", err
	}
	return thumbPath, nil
}
