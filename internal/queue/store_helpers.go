package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, customer_id, title, source_type, status, script_path, script_sha1, wav_path, timestamps_path, audio_duration_seconds, background_path, background_offset_seconds, end_buffer_seconds, output_path, thumbnail_path, series_id, series_index, series_count, target_integration_id, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		customerID       string
		title            sql.NullString
		sourceType       string
		statusStr        string
		scriptPath       sql.NullString
		scriptSHA1       sql.NullString
		wavPath          sql.NullString
		timestampsPath   sql.NullString
		audioDuration    sql.NullFloat64
		backgroundPath   sql.NullString
		backgroundOffset sql.NullFloat64
		endBuffer        sql.NullFloat64
		outputPath       sql.NullString
		thumbnailPath    sql.NullString
		seriesID         sql.NullString
		seriesIndex      sql.NullInt64
		seriesCount      sql.NullInt64
		integrationID    sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&customerID,
		&title,
		&sourceType,
		&statusStr,
		&scriptPath,
		&scriptSHA1,
		&wavPath,
		&timestampsPath,
		&audioDuration,
		&backgroundPath,
		&backgroundOffset,
		&endBuffer,
		&outputPath,
		&thumbnailPath,
		&seriesID,
		&seriesIndex,
		&seriesCount,
		&integrationID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                   id,
		CustomerID:           customerID,
		Title:                title.String,
		SourceType:           SourceType(sourceType),
		Status:               Status(statusStr),
		ScriptPath:           scriptPath.String,
		ScriptSHA1:           scriptSHA1.String,
		WavPath:              wavPath.String,
		TimestampsPath:       timestampsPath.String,
		AudioDurationSeconds: audioDuration.Float64,
		BackgroundPath:       backgroundPath.String,
		EndBufferSeconds:     endBuffer.Float64,
		OutputPath:           outputPath.String,
		ThumbnailPath:        thumbnailPath.String,
		SeriesID:             seriesID.String,
		SeriesIndex:          int(seriesIndex.Int64),
		SeriesCount:          int(seriesCount.Int64),
		TargetIntegrationID:  integrationID.String,
	}
	if backgroundOffset.Valid {
		offset := backgroundOffset.Float64
		item.BackgroundOffsetSeconds = &offset
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

const seriesColumns = "id, customer_id, source_path, segment_seconds, target_integration_id, status, error_message, created_at, split_at, lease_owner, lease_at"

func scanSeries(scanner interface{ Scan(dest ...any) error }) (*Series, error) {
	var (
		id             string
		customerID     string
		sourcePath     string
		segmentSeconds float64
		integrationID  sql.NullString
		statusStr      string
		errorMessage   sql.NullString
		createdRaw     sql.NullString
		splitRaw       sql.NullString
		leaseOwner     sql.NullString
		leaseRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&customerID,
		&sourcePath,
		&segmentSeconds,
		&integrationID,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&splitRaw,
		&leaseOwner,
		&leaseRaw,
	); err != nil {
		return nil, err
	}

	series := &Series{
		ID:                  id,
		CustomerID:          customerID,
		SourcePath:          sourcePath,
		SegmentSeconds:      segmentSeconds,
		TargetIntegrationID: integrationID.String,
		Status:              SeriesStatus(statusStr),
		ErrorMessage:        errorMessage.String,
		LeaseOwner:          leaseOwner.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		series.CreatedAt = created
	}
	if splitRaw.Valid {
		if split, err := parseTimeString(splitRaw.String); err == nil {
			series.SplitAt = &split
		}
	}
	if leaseRaw.Valid {
		if lease, err := parseTimeString(leaseRaw.String); err == nil {
			series.LeaseAt = &lease
		}
	}
	return series, nil
}

const postColumns = "id, customer_id, platform, integration_id, scheduled_at, provider_post_id, provider_state, release_url, item_id, status, created_at, updated_at"

func scanPost(scanner interface{ Scan(dest ...any) error }) (*Post, error) {
	var (
		id             int64
		customerID     string
		platform       string
		integrationID  string
		scheduledRaw   string
		providerPostID sql.NullString
		providerState  sql.NullString
		releaseURL     sql.NullString
		itemID         int64
		statusStr      string
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&customerID,
		&platform,
		&integrationID,
		&scheduledRaw,
		&providerPostID,
		&providerState,
		&releaseURL,
		&itemID,
		&statusStr,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	post := &Post{
		ID:             id,
		CustomerID:     customerID,
		Platform:       platform,
		IntegrationID:  integrationID,
		ProviderPostID: providerPostID.String,
		ProviderState:  providerState.String,
		ReleaseURL:     releaseURL.String,
		ItemID:         itemID,
		Status:         PostStatus(statusStr),
	}
	if scheduled, err := parseTimeString(scheduledRaw); err == nil {
		post.ScheduledAt = scheduled
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		post.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		post.UpdatedAt = updated
	}
	return post, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

// formatSlot renders a schedule slot without fractional seconds so the
// unique (integration_id, scheduled_at) index compares whole minutes.
func formatSlot(value time.Time) string {
	return value.UTC().Truncate(time.Minute).Format(time.RFC3339)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
