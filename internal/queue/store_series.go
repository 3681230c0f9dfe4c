package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewSeries registers a premade source video for splitting. The caller
// supplies the series identifier (a uuid) so segment file names can embed it.
func (s *Store) NewSeries(ctx context.Context, id, customerID, sourcePath string, segmentSeconds float64, integrationID string) (*Series, error) {
	if id == "" {
		return nil, errors.New("series id is required")
	}
	if segmentSeconds <= 0 {
		return nil, errors.New("segment length must be positive")
	}
	timestamp := formatTime(time.Now())

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO premade_series (
            id, customer_id, source_path, segment_seconds, target_integration_id,
            status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		customerID,
		sourcePath,
		segmentSeconds,
		nullableString(integrationID),
		SeriesPendingSplit,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert series: %w", err)
	}
	return s.GetSeries(ctx, id)
}

// GetSeries fetches a series by identifier. A missing series returns nil, nil.
func (s *Store) GetSeries(ctx context.Context, id string) (*Series, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM premade_series WHERE id = ?`, id)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	return series, nil
}

// ClaimNextPendingSplit atomically leases the oldest claimable series for the
// given owner. A series is claimable when pending_split and either never
// leased or holding a lease older than ttl. Returns nil, nil when nothing is
// claimable. The single UPDATE relies on SQLite's writer exclusivity, so two
// workers can never claim the same row.
func (s *Store) ClaimNextPendingSplit(ctx context.Context, owner string, ttl time.Duration) (*Series, error) {
	if owner == "" {
		return nil, errors.New("claim owner is required")
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	cutoff := formatTime(now.Add(-ttl))

	var claimedID string
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE premade_series
             SET lease_owner = ?, lease_at = ?
             WHERE id = (
                 SELECT id FROM premade_series
                 WHERE status = ? AND (lease_at IS NULL OR lease_at < ?)
                 ORDER BY created_at, id
                 LIMIT 1
             )
             RETURNING id`,
			owner,
			formatTime(now),
			SeriesPendingSplit,
			cutoff,
		)
		return row.Scan(&claimedID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim series: %w", err)
	}
	return s.GetSeries(ctx, claimedID)
}

// MarkSplitComplete finalizes a series after fan-out.
func (s *Store) MarkSplitComplete(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE premade_series SET status = ?, split_at = ?, error_message = NULL WHERE id = ?`,
		SeriesSplitComplete,
		formatTime(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("mark split complete: %w", err)
	}
	return nil
}

// MarkSeriesFailed records a terminal split failure on the series row.
func (s *Store) MarkSeriesFailed(ctx context.Context, id, reason string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE premade_series SET status = ?, error_message = ? WHERE id = ?`,
		SeriesFailed,
		nullableString(reason),
		id,
	); err != nil {
		return fmt.Errorf("mark series failed: %w", err)
	}
	return nil
}

// ListSeries returns every series, oldest first.
func (s *Store) ListSeries(ctx context.Context) ([]*Series, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+seriesColumns+` FROM premade_series ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

// ClearFailedSeries removes failed series along with any items they fanned
// out, returning the number of series removed.
func (s *Store) ClearFailedSeries(ctx context.Context) (int64, error) {
	if _, err := s.execWithRetry(
		ctx,
		`DELETE FROM work_items WHERE series_id IN (SELECT id FROM premade_series WHERE status = ?)`,
		SeriesFailed,
	); err != nil {
		return 0, fmt.Errorf("clear failed series items: %w", err)
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM premade_series WHERE status = ?`, SeriesFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed series: %w", err)
	}
	return res.RowsAffected()
}
