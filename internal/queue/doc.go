// Package queue persists the durable work queue backing the pipeline: work
// items, premade series, and scheduled posts, all stored in a single SQLite
// database that doubles as the coordination point between workers.
package queue
