package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nightshift/internal/logging"
	"nightshift/internal/stage"
)

const defaultErrorRetryInterval = 10 * time.Second

// Manager coordinates the registered pipeline workers.
type Manager struct {
	logger             *slog.Logger
	errorRetryInterval time.Duration

	workers []stage.Worker

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithErrorRetryInterval overrides the backoff after a worker error.
func WithErrorRetryInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.errorRetryInterval = interval
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		logger:             logger,
		errorRetryInterval: defaultErrorRetryInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a worker. Registration must happen before Start.
func (m *Manager) Register(worker stage.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if worker != nil && !m.running {
		m.workers = append(m.workers, worker)
	}
}

// Start launches one polling goroutine per registered worker.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.workers) == 0 {
		m.mu.Unlock()
		return errors.New("workflow workers not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	workers := append([]stage.Worker(nil), m.workers...)
	m.wg.Add(len(workers))
	m.mu.Unlock()

	m.checkHealth(ctx, workers)
	for _, worker := range workers {
		go m.runWorker(runCtx, worker)
	}
	return nil
}

// checkHealth probes workers that can verify their collaborators. An
// unhealthy worker still starts; its polls surface the failure with retries.
func (m *Manager) checkHealth(ctx context.Context, workers []stage.Worker) {
	for _, worker := range workers {
		checker, ok := worker.(stage.HealthChecker)
		if !ok {
			continue
		}
		if health := checker.HealthCheck(ctx); !health.Ready {
			logging.NewComponentLogger(m.logger, worker.Name()).Warn(
				"worker dependencies unavailable", logging.String("detail", health.Detail))
		}
	}
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, worker stage.Worker) {
	defer m.wg.Done()

	logger := logging.NewComponentLogger(m.logger, worker.Name())
	logger.Info("worker started", logging.Duration("poll_interval", worker.PollInterval()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		default:
		}

		worked, err := worker.PollOnce(ctx)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("worker stopped")
				return
			}
			logger.Error("poll failed", logging.Error(err))
			m.wait(ctx, m.errorRetryInterval)
		case worked:
			// More work may be waiting; poll again immediately.
		default:
			m.wait(ctx, worker.PollInterval())
		}
	}
}

func (m *Manager) wait(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
