// Package workflow runs the pipeline workers: one polling goroutine per
// registered worker, coordinated shutdown, and error backoff.
package workflow
