package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreatePost records a reserved publication slot. The unique
// (integration_id, scheduled_at) index rejects a second post on the same
// slot; callers detect that with IsSlotConflict and retry next cycle.
func (s *Store) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	if post == nil {
		return nil, errors.New("post is nil")
	}
	timestamp := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO scheduled_posts (
            customer_id, platform, integration_id, scheduled_at,
            provider_post_id, provider_state, release_url, item_id, status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.CustomerID,
		post.Platform,
		post.IntegrationID,
		formatSlot(post.ScheduledAt),
		nullableString(post.ProviderPostID),
		nullableString(post.ProviderState),
		nullableString(post.ReleaseURL),
		post.ItemID,
		PostScheduled,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPost(ctx, id)
}

// IsSlotConflict reports whether err came from the unique slot index.
func IsSlotConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "idx_scheduled_posts_slot") ||
		(strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "scheduled_at"))
}

// GetPost fetches a post by identifier. A missing post returns nil, nil.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// PostExistsAt reports whether a slot is already taken for an integration.
// The slot compares at minute precision.
func (s *Store) PostExistsAt(ctx context.Context, integrationID string, at time.Time) (bool, error) {
	var count int
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM scheduled_posts WHERE integration_id = ? AND scheduled_at = ?`,
		integrationID,
		formatSlot(at),
	)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("post exists at: %w", err)
	}
	return count > 0, nil
}

// HasPostForItem reports whether the item already has a reserved slot.
func (s *Store) HasPostForItem(ctx context.Context, itemID int64) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scheduled_posts WHERE item_id = ?`, itemID)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("post for item: %w", err)
	}
	return count > 0, nil
}

// NextSchedulable returns the oldest ready item eligible for scheduling, or
// nil when none qualifies. A series member is held back until every earlier
// segment of its series has been scheduled, so parts release in order.
func (s *Store) NextSchedulable(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items i
         WHERE i.status = ?
           AND NOT EXISTS (SELECT 1 FROM scheduled_posts p WHERE p.item_id = i.id)
           AND (i.series_id IS NULL OR NOT EXISTS (
               SELECT 1 FROM work_items sibling
               WHERE sibling.series_id = i.series_id
                 AND sibling.series_index < i.series_index
                 AND sibling.status != ?
           ))
         ORDER BY i.created_at, i.series_index, i.id
         LIMIT 1`,
		StatusReady,
		StatusScheduled,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next schedulable: %w", err)
	}
	return item, nil
}

// LatestSlot returns the most recent reserved slot for an integration, or a
// zero time when the integration has no posts yet.
func (s *Store) LatestSlot(ctx context.Context, integrationID string) (time.Time, error) {
	var raw sql.NullString
	row := s.db.QueryRowContext(
		ctx,
		`SELECT MAX(scheduled_at) FROM scheduled_posts WHERE integration_id = ?`,
		integrationID,
	)
	if err := row.Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("latest slot: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	slot, err := parseTimeString(raw.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse latest slot: %w", err)
	}
	return slot, nil
}

// ListPosts returns every scheduled post ordered by slot time.
func (s *Store) ListPosts(ctx context.Context) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts ORDER BY scheduled_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
