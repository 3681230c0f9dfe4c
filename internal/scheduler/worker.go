// Package scheduler publishes ready items through the posting provider and
// reserves their publication slots.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/queue"
	"nightshift/internal/services"
	"nightshift/internal/services/postiz"
	"nightshift/internal/stage"
)

// Poster is the subset of the posting provider client the scheduler needs.
type Poster interface {
	ListIntegrations(ctx context.Context) ([]postiz.Integration, error)
	Upload(ctx context.Context, path string) (*postiz.UploadedAsset, error)
	Schedule(ctx context.Context, bundle postiz.ScheduleBundle) ([]postiz.ScheduledPost, error)
}

// Worker schedules ready items, oldest first, series segments in order.
type Worker struct {
	cfg      *config.Config
	store    *queue.Store
	poster   Poster
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// Option adjusts worker construction.
type Option func(*Worker)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker constructs the scheduling stage.
func NewWorker(cfg *config.Config, store *queue.Store, poster Poster, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		cfg:      cfg,
		store:    store,
		poster:   poster,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		interval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name identifies the worker in logs.
func (w *Worker) Name() string { return "scheduler" }

// HealthCheck verifies the posting provider is reachable.
func (w *Worker) HealthCheck(ctx context.Context) stage.Health {
	if _, err := w.poster.ListIntegrations(ctx); err != nil {
		return stage.Unhealthy(err.Error())
	}
	return stage.Healthy()
}

// PollInterval returns the idle sleep between polls.
func (w *Worker) PollInterval() time.Duration { return w.interval }

// PollOnce schedules at most one item.
func (w *Worker) PollOnce(ctx context.Context) (bool, error) {
	item, err := w.store.NextSchedulable(ctx)
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
		if queue.IsSlotConflict(err) {
			logger.Warn("slot reserved by another scheduler; retrying next cycle", logging.Error(err))
			return false, nil
		}
		logger.Error("scheduling failed", logging.Error(err))
		if services.IsPermanent(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (w *Worker) process(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	if item.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "scheduler", "prepare", "item has no rendered output", nil)
	}

	integration, err := w.resolveIntegration(ctx, item)
	if err != nil {
		return err
	}

	slot, err := w.resolveSlot(ctx, integration.ID)
	if err != nil {
		return err
	}

	media, err := w.uploadMedia(ctx, item)
	if err != nil {
		return err
	}

	title := postTitle(item)
	bundle := postiz.ScheduleBundle{
		Date: postiz.FormatScheduleDate(slot),
		Posts: []postiz.PostEntry{{
			Integration: postiz.IntegrationRef{ID: integration.ID},
			Value:       []postiz.PostContent{{Content: title, Image: media}},
			Settings:    postiz.SettingsForPlatform(integration.Identifier, title),
		}},
	}
	results, err := w.poster.Schedule(ctx, bundle)
	if err != nil {
		return err
	}

	post := &queue.Post{
		CustomerID:    item.CustomerID,
		Platform:      integration.Identifier,
		IntegrationID: integration.ID,
		ScheduledAt:   slot,
		ItemID:        item.ID,
	}
	if len(results) > 0 {
		post.ProviderPostID = results[0].PostID
	}
	if _, err := w.store.CreatePost(ctx, post); err != nil {
		return err
	}

	item.Status = queue.StatusScheduled
	if err := w.store.Update(ctx, item); err != nil {
		return err
	}

	logger.Info("post scheduled",
		logging.String("platform", integration.Identifier),
		logging.String("slot", postiz.FormatScheduleDate(slot)),
		logging.String("provider_post_id", post.ProviderPostID))
	return nil
}

// resolveIntegration picks the item's explicit target, or the first enabled
// integration for the configured default platform.
func (w *Worker) resolveIntegration(ctx context.Context, item *queue.Item) (*postiz.Integration, error) {
	integrations, err := w.poster.ListIntegrations(ctx)
	if err != nil {
		return nil, err
	}

	if item.TargetIntegrationID != "" {
		for i := range integrations {
			if integrations[i].ID == item.TargetIntegrationID && !integrations[i].Disabled {
				return &integrations[i], nil
			}
		}
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "resolve integration",
			fmt.Sprintf("target integration %s not available", item.TargetIntegrationID), nil)
	}

	platform := w.cfg.Postiz.DefaultPlatform
	for i := range integrations {
		if strings.EqualFold(integrations[i].Identifier, platform) && !integrations[i].Disabled {
			return &integrations[i], nil
		}
	}
	return nil, services.Wrap(services.ErrConfiguration, "scheduler", "resolve integration",
		fmt.Sprintf("no enabled %s integration", platform), nil)
}

// resolveSlot reserves the next free minute for an integration: the default
// lead from now, bumped once by a minute when the slot is taken. The store's
// unique slot index catches the race where another scheduler wins the same
// minute between this check and CreatePost.
func (w *Worker) resolveSlot(ctx context.Context, integrationID string) (time.Time, error) {
	lead := time.Duration(w.cfg.Postiz.ScheduleLeadMinutes) * time.Minute
	slot := w.now().UTC().Add(lead).Truncate(time.Minute)

	taken, err := w.store.PostExistsAt(ctx, integrationID, slot)
	if err != nil {
		return time.Time{}, err
	}
	if !taken {
		return slot, nil
	}

	slot = slot.Add(time.Minute)
	taken, err = w.store.PostExistsAt(ctx, integrationID, slot)
	if err != nil {
		return time.Time{}, err
	}
	if taken {
		return time.Time{}, services.Wrap(services.ErrTransient, "scheduler", "resolve slot",
			"publication window full", nil)
	}
	return slot, nil
}

func (w *Worker) uploadMedia(ctx context.Context, item *queue.Item) ([]postiz.MediaRef, error) {
	video, err := w.poster.Upload(ctx, item.OutputPath)
	if err != nil {
		return nil, err
	}
	media := []postiz.MediaRef{{ID: video.ID, Path: video.Path}}

	if item.ThumbnailPath != "" {
		if _, err := os.Stat(item.ThumbnailPath); err == nil {
			thumb, err := w.poster.Upload(ctx, item.ThumbnailPath)
			if err != nil {
				return nil, err
			}
			media = append(media, postiz.MediaRef{ID: thumb.ID, Path: thumb.Path})
		}
	}
	return media, nil
}

// postTitle derives the published title from the item's metadata, falling
// back to the series part number or the output file name.
func postTitle(item *queue.Item) string {
	title := strings.TrimSpace(item.Title)
	switch {
	case title != "" && item.SeriesCount > 1:
		return fmt.Sprintf("%s - Part %d", title, item.SeriesIndex)
	case title != "":
		return title
	case item.SeriesIndex > 0:
		return fmt.Sprintf("Part %d", item.SeriesIndex)
	default:
		base := filepath.Base(item.OutputPath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
}
