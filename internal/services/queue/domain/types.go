// Package domain holds the job queue types and ports
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of one queued submission
type JobState string

// Job states
const (
	StateQueued    JobState = "queued"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Terminal reports whether the state admits no further transitions
func (s JobState) Terminal() bool { return s == StateCompleted || s == StateFailed }

// QueueJob is one durable submission of a guild forum pair
type QueueJob struct {
	ID             uuid.UUID
	GuildID        string
	ForumChannelID string
	State          JobState
	Progress       int
	Resuming       bool
	Error          string
	BackfillJobID  *int64
	Attempts       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}
