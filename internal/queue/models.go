package queue

import "time"

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPendingAudio     Status = "pending_audio"
	StatusPendingRender    Status = "pending_render"
	StatusPendingThumbnail Status = "pending_thumbnail"
	StatusReady            Status = "ready"
	StatusScheduled        Status = "scheduled"
)

var allStatuses = []Status{
	StatusPendingAudio,
	StatusPendingRender,
	StatusPendingThumbnail,
	StatusReady,
	StatusScheduled,
}

// AllStatuses returns every valid item status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsValidStatus reports whether value names a known item status.
func IsValidStatus(value string) bool {
	for _, status := range allStatuses {
		if string(status) == value {
			return true
		}
	}
	return false
}

// SourceType distinguishes script-generated items from premade segments.
type SourceType string

const (
	SourceGenerated      SourceType = "generated"
	SourcePremadeSegment SourceType = "premade_segment"
)

// Item represents a work item persisted in SQLite. For generated items
// OutputPath holds the chosen background between the render stage's
// background selection and the render completion write; afterwards it holds
// the rendered video.
type Item struct {
	ID                      int64
	CustomerID              string
	Title                   string
	SourceType              SourceType
	Status                  Status
	ScriptPath              string
	ScriptSHA1              string
	WavPath                 string
	TimestampsPath          string
	AudioDurationSeconds    float64
	BackgroundPath          string
	BackgroundOffsetSeconds *float64
	EndBufferSeconds        float64
	OutputPath              string
	ThumbnailPath           string
	SeriesID                string
	SeriesIndex             int
	SeriesCount             int
	TargetIntegrationID     string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// SeriesStatus represents the lifecycle of a premade series.
type SeriesStatus string

const (
	SeriesPendingSplit  SeriesStatus = "pending_split"
	SeriesSplitComplete SeriesStatus = "split_complete"
	SeriesFailed        SeriesStatus = "failed"
)

// Series represents a premade source video awaiting fan-out into segments.
type Series struct {
	ID                  string
	CustomerID          string
	SourcePath          string
	SegmentSeconds      float64
	TargetIntegrationID string
	Status              SeriesStatus
	ErrorMessage        string
	CreatedAt           time.Time
	SplitAt             *time.Time
	LeaseOwner          string
	LeaseAt             *time.Time
}

// PostStatus represents the lifecycle of a scheduled post.
type PostStatus string

const PostScheduled PostStatus = "scheduled"

// Post records a publication slot reserved with the posting provider.
// ScheduledAt is UTC at minute precision; (IntegrationID, ScheduledAt) is
// unique so two posts can never land on the same slot.
type Post struct {
	ID             int64
	CustomerID     string
	Platform       string
	IntegrationID  string
	ScheduledAt    time.Time
	ProviderPostID string
	ProviderState  string
	ReleaseURL     string
	ItemID         int64
	Status         PostStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Summary aggregates item counts per lifecycle state for status displays.
type Summary struct {
	Total            int
	PendingAudio     int
	PendingRender    int
	PendingThumbnail int
	Ready            int
	Scheduled        int
}
