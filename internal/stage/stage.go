// Package stage defines the contract between pipeline workers and the
// workflow manager.
package stage

import (
	"context"
	"strings"
	"time"
)

// Worker is one polling pipeline stage. PollOnce processes at most one unit
// of work and reports whether anything was done, so the manager can poll
// again immediately while work remains.
type Worker interface {
	Name() string
	PollInterval() time.Duration
	PollOnce(ctx context.Context) (bool, error)
}

// Health reports whether a worker's collaborators are reachable.
type Health struct {
	Ready  bool
	Detail string
}

// Healthy returns a ready health report.
func Healthy() Health {
	return Health{Ready: true}
}

// Unhealthy returns a failed health report with the given detail.
func Unhealthy(detail string) Health {
	return Health{Ready: false, Detail: strings.TrimSpace(detail)}
}

// HealthChecker is implemented by workers that can verify their
// dependencies before the manager starts polling them.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
