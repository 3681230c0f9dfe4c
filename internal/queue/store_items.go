package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewScriptItem inserts a generated work item awaiting speech synthesis.
func (s *Store) NewScriptItem(ctx context.Context, customerID, title, scriptPath, scriptSHA1 string) (*Item, error) {
	timestamp := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO work_items (
            customer_id, title, source_type, status, script_path, script_sha1,
            end_buffer_seconds, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customerID,
		nullableString(title),
		SourceGenerated,
		StatusPendingAudio,
		scriptPath,
		nullableString(scriptSHA1),
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert script item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// InsertSegmentItem inserts a premade segment produced by the splitter. The
// item enters at pending_thumbnail with its rendered file and pre-cut
// thumbnail already recorded.
func (s *Store) InsertSegmentItem(ctx context.Context, item *Item) (*Item, error) {
	if item == nil {
		return nil, errors.New("item is nil")
	}
	if item.SeriesID == "" || item.SeriesIndex <= 0 || item.SeriesCount <= 0 {
		return nil, errors.New("segment item requires series identity")
	}
	timestamp := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO work_items (
            customer_id, title, source_type, status, output_path, thumbnail_path,
            series_id, series_index, series_count, target_integration_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.CustomerID,
		nullableString(item.Title),
		SourcePremadeSegment,
		StatusPendingThumbnail,
		item.OutputPath,
		nullableString(item.ThumbnailPath),
		item.SeriesID,
		item.SeriesIndex,
		item.SeriesCount,
		nullableString(item.TargetIntegrationID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert segment item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a work item by identifier. A missing item returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing work item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE work_items
         SET customer_id = ?, title = ?, status = ?, script_path = ?, script_sha1 = ?,
             wav_path = ?, timestamps_path = ?, audio_duration_seconds = ?,
             background_path = ?, background_offset_seconds = ?, end_buffer_seconds = ?,
             output_path = ?, thumbnail_path = ?, target_integration_id = ?, updated_at = ?
         WHERE id = ?`,
		item.CustomerID,
		nullableString(item.Title),
		item.Status,
		nullableString(item.ScriptPath),
		nullableString(item.ScriptSHA1),
		nullableString(item.WavPath),
		nullableString(item.TimestampsPath),
		item.AudioDurationSeconds,
		nullableString(item.BackgroundPath),
		nullableFloat(item.BackgroundOffsetSeconds),
		item.EndBufferSeconds,
		nullableString(item.OutputPath),
		nullableString(item.ThumbnailPath),
		nullableString(item.TargetIntegrationID),
		formatTime(item.UpdatedAt),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// NextForStage returns the oldest item of the given source type sitting in
// the given status, or nil when the stage has nothing to do.
func (s *Store) NextForStage(ctx context.Context, source SourceType, status Status) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items WHERE source_type = ? AND status = ? ORDER BY created_at, id LIMIT 1`,
		source,
		status,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next for stage: %w", err)
	}
	return item, nil
}

// List returns work items filtered by status set, oldest first. With no
// statuses all items are returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM work_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsBySeries returns the items belonging to a series in segment order.
func (s *Store) ItemsBySeries(ctx context.Context, seriesID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items WHERE series_id = ? ORDER BY series_index`,
		seriesID,
	)
	if err != nil {
		return nil, fmt.Errorf("items by series: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteSeriesItems removes every item belonging to a series. The splitter
// calls this before re-inserting segments so a retried split never leaves
// stale entries behind.
func (s *Store) DeleteSeriesItems(ctx context.Context, seriesID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM work_items WHERE series_id = ?`, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series items: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM work_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Summarize aggregates item counts per lifecycle state.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM work_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("summarize queue: %w", err)
	}
	defer rows.Close()

	summary := &Summary{}
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, err
		}
		summary.Total += count
		switch Status(statusStr) {
		case StatusPendingAudio:
			summary.PendingAudio = count
		case StatusPendingRender:
			summary.PendingRender = count
		case StatusPendingThumbnail:
			summary.PendingThumbnail = count
		case StatusReady:
			summary.Ready = count
		case StatusScheduled:
			summary.Scheduled = count
		}
	}
	return summary, rows.Err()
}
