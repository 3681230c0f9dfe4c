// Package tts converts generated scripts to narration audio with
// character-level timing.
package tts

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
	"nightshift/internal/media/wav"
	"nightshift/internal/queue"
	"nightshift/internal/services"
	"nightshift/internal/services/elevenlabs"
)

// Synthesizer produces speech for a script.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*elevenlabs.Synthesis, error)
}

// Worker claims pending_audio items, synthesizes narration, and advances
// them to pending_render.
type Worker struct {
	store    *queue.Store
	synth    Synthesizer
	logger   *slog.Logger
	interval time.Duration
}

// NewWorker constructs the speech synthesis stage.
func NewWorker(cfg *config.Config, store *queue.Store, synth Synthesizer, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		synth:    synth,
		logger:   logging.NewComponentLogger(logger, "tts"),
		interval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
	}
}

// Name identifies the worker in logs.
func (w *Worker) Name() string { return "tts" }

// PollInterval returns the idle sleep between polls.
func (w *Worker) PollInterval() time.Duration { return w.interval }

// PollOnce processes at most one item.
func (w *Worker) PollOnce(ctx context.Context) (bool, error) {
	item, err := w.store.NextForStage(ctx, queue.SourceGenerated, queue.StatusPendingAudio)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, w.logger)

	if err := w.process(ctx, item); err != nil {
		logger.Error("synthesis failed", logging.Error(err))
		if services.IsPermanent(err) {
			// Bad script data stalls the item rather than burning API quota.
			return false, nil
		}
		return false, err
	}
	logger.Info("narration ready",
		logging.String("wav", item.WavPath),
		logging.Float64("audio_duration_seconds", item.AudioDurationSeconds))
	return true, nil
}

func (w *Worker) process(ctx context.Context, item *queue.Item) error {
	script, err := readScript(item.ScriptPath)
	if err != nil {
		return err
	}

	result, err := w.synth.Synthesize(ctx, script)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "provider call failed", err)
	}

	sampleRate := elevenlabs.SampleRateFromOutputFormat(result.OutputFormat)
	dir := filepath.Dir(item.ScriptPath)
	wavPath := filepath.Join(dir, fmt.Sprintf("audio_%06d.wav", item.ID))
	if err := wav.WritePCM16Mono(wavPath, sampleRate, result.Audio); err != nil {
		return err
	}

	var timestampsPath string
	duration := wav.EstimateDurationSeconds(len(result.Audio), sampleRate)
	if result.Alignment != nil {
		doc, err := result.Alignment.Document()
		if err != nil {
			return services.Wrap(services.ErrValidation, "tts", "persist timestamps", "encode alignment", err)
		}
		timestampsPath = filepath.Join(dir, fmt.Sprintf("timestamps_%06d.json", item.ID))
		if err := os.WriteFile(timestampsPath, doc, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "tts", "persist timestamps", "write file", err)
		}
		if lastEnd := result.Alignment.LastEndTime(); lastEnd > 0 {
			duration = lastEnd
		}
	}

	item.WavPath = wavPath
	item.TimestampsPath = timestampsPath
	item.AudioDurationSeconds = duration
	item.Status = queue.StatusPendingRender
	return w.store.Update(ctx, item)
}

func readScript(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "read script", "item has no script path", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "tts", "read script", "script not readable", err)
	}
	script := strings.TrimSpace(string(data))
	if script == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "read script", "script is empty", nil)
	}
	return script, nil
}
