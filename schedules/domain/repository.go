package domain

import (
	"context"
	"time"
)

// ScheduleRepository persists schedule definitions.
type ScheduleRepository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id string) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error)
	ListActive(ctx context.Context) ([]*Schedule, error)

	// MarkRun stamps last_run_at and adds sent to total_sent.
	MarkRun(ctx context.Context, id string, at time.Time, sent int) error

	InitSchema(ctx context.Context) error
}

// HistoryRepository stores SentItem rows.
type HistoryRepository interface {
	Record(ctx context.Context, item *SentItem) error
	ListByExecution(ctx context.Context, executionID string) ([]SentItem, error)
	ListBySchedule(ctx context.Context, scheduleID string, limit int) ([]SentItem, error)
	DeleteByExecution(ctx context.Context, executionID string) (int64, error)
	DeleteBySchedule(ctx context.Context, scheduleID string) (int64, error)

	// RecentIDs returns source IDs sent by the schedule within the last windowHours.
	RecentIDs(ctx context.Context, scheduleID string, windowHours int) ([]string, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	InitSchema(ctx context.Context) error
}

// RunRepository stores one ExecutionRun per attempt.
type RunRepository interface {
	Record(ctx context.Context, run *ExecutionRun) error
	GetByID(ctx context.Context, id string) (*ExecutionRun, error)
	ListBySchedule(ctx context.Context, scheduleID string, limit int) ([]ExecutionRun, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteBySchedule(ctx context.Context, scheduleID string) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	InitSchema(ctx context.Context) error
}

// ExecutionLock grants at most one attempt per (schedule, minute) across processes.
type ExecutionLock interface {
	// TryAcquire returns false on contention and on store failure.
	TryAcquire(ctx context.Context, scheduleID, minute string) bool
	CleanupStale(ctx context.Context, maxAgeMinutes int) (int64, error)
}

// CandidateFetcher searches the upstream source. It may be slow and may fail.
type CandidateFetcher interface {
	Fetch(ctx context.Context, keywords []string, maxItems int, filters FilterBundle) ([]CandidateItem, error)
}

// ChannelSender publishes to the outbound channel. chatRef is a numeric chat ID or a @channel username.
type ChannelSender interface {
	SendText(ctx context.Context, chatRef, text string) error
	SendSingleMedia(ctx context.Context, chatRef string, media MediaAttachment, caption string) error
	SendMediaGroup(ctx context.Context, chatRef string, media []MediaAttachment, firstCaption string) error
}

// TextRewriter produces an alternative wording for a post.
type TextRewriter interface {
	Rewrite(ctx context.Context, text, prompt string) (string, error)
}
