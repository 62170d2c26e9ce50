// Package domain holds the core business logic and data structures for backfill
package domain

import "time"

// JobStatus is the lifecycle state of one backfill job
type JobStatus string

// Job statuses
const (
	JobRunning     JobStatus = "running"
	JobPausedQuota JobStatus = "paused_quota_limit"
	JobCompleted   JobStatus = "completed"
	JobFailed      JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions
func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

// CheckpointStatus is the lifecycle state of one thread checkpoint
type CheckpointStatus string

// Checkpoint statuses
const (
	CheckpointPending    CheckpointStatus = "pending"
	CheckpointInProgress CheckpointStatus = "in_progress"
	CheckpointCompleted  CheckpointStatus = "completed"
	CheckpointFailed     CheckpointStatus = "failed"
)

// CanTransition reports whether moving from s to next is legal.
// Completed never leaves; failed may only be retried back through pending
func (s CheckpointStatus) CanTransition(next CheckpointStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case CheckpointPending:
		return next == CheckpointInProgress || next == CheckpointFailed
	case CheckpointInProgress:
		return next == CheckpointCompleted || next == CheckpointFailed
	case CheckpointFailed:
		return next == CheckpointPending
	case CheckpointCompleted:
		return false
	}
	return false
}

// BackfillJob is one durable record per guild and forum channel pair
type BackfillJob struct {
	ID                    int64
	GuildID               string
	ForumChannelID        string
	CutoffTimestamp       time.Time
	Status                JobStatus
	LastProcessedThreadID string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ThreadCheckpoint is the per thread resume state within one job
type ThreadCheckpoint struct {
	ID                       int64
	BackfillJobID            int64
	ThreadID                 string
	LastProcessedMessageID   string
	OldestProcessedTimestamp *time.Time
	Status                   CheckpointStatus
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// CheckpointPatch is a partial checkpoint update; nil fields are left unchanged
type CheckpointPatch struct {
	LastProcessedMessageID   *string
	OldestProcessedTimestamp *time.Time
	Status                   *CheckpointStatus
}

// Progress aggregates checkpoint counts for one job
type Progress struct {
	Total      int
	Completed  int
	Failed     int
	InProgress int
}

// Done counts threads that reached a resolved state
func (p Progress) Done() int { return p.Completed + p.Failed }

// Percent reports floor(done/total*100) capped at 100; zero total is zero
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := p.Done() * 100 / p.Total
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Thread is the slice of a source platform thread the pipeline needs
type Thread struct {
	ID        string
	ParentID  string
	GuildID   string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// ThreadMessage is the slice of a source platform message the pipeline needs
type ThreadMessage struct {
	ID                  string
	ThreadID            string
	GuildID             string
	Content             string
	AuthorID            string
	AuthorUsername      string
	AuthorAvatarURL     string
	AuthorDisplayName   string
	CreatedAt           time.Time
	EditedAt            *time.Time
	IsStarter           bool
	ReferencedMessageID string
	Attachments         []MessageAttachment
	Embeds              []any
}

// MessageAttachment mirrors one uploaded file on a message
type MessageAttachment struct {
	ID          string
	Name        string
	URL         string
	ContentType string
	Size        int64
}
