// Package daemonrun wires the full pipeline together and runs it until the
// process receives a shutdown signal.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"

	"nightshift/internal/config"
	"nightshift/internal/logging"
	"nightshift/internal/media/ffmpeg"
	"nightshift/internal/queue"
	"nightshift/internal/render"
	"nightshift/internal/scheduler"
	"nightshift/internal/services/elevenlabs"
	"nightshift/internal/services/postiz"
	"nightshift/internal/splitter"
	"nightshift/internal/thumbnail"
	"nightshift/internal/tts"
	"nightshift/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the nightshift daemon and blocks until shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.ValidateForDaemon(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lockPath := filepath.Join(cfg.Paths.LogDir, "nightshift.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another nightshift daemon holds %s", lockPath)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	logCfg := *cfg
	if opts.LogLevel != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(&logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "nightshift.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	media := ffmpeg.New()
	speech := elevenlabs.NewClient(cfg.ElevenLabs)
	poster, err := postiz.NewClient(cfg.Postiz)
	if err != nil {
		return fmt.Errorf("create postiz client: %w", err)
	}

	manager := workflow.NewManager(logger)
	manager.Register(tts.NewWorker(cfg, store, speech, logger))
	manager.Register(render.NewWorker(cfg, store, media, logger))
	manager.Register(thumbnail.NewGeneratedWorker(cfg, store, media, logger))
	manager.Register(thumbnail.NewPremadeWorker(cfg, store, media, logger))
	manager.Register(splitter.NewWorker(cfg, store, media, logger))
	manager.Register(scheduler.NewWorker(cfg, store, poster, logger))

	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	logger.Info("nightshift daemon running",
		logging.String("database", store.Path()),
		logging.String("lock", lockPath))

	<-signalCtx.Done()
	logger.Info("nightshift daemon shutting down")
	manager.Stop()
	return nil
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
