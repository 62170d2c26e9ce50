package domain

import (
	"context"
	"time"
)

// RunnerPort is the public port exposed by the module (what the queue worker calls)
type RunnerPort interface {
	// Run executes one backfill invocation for a guild forum pair.
	// Progress is reported through report after each thread resolves
	// and once more on any terminal outcome
	Run(ctx context.Context, guildID, forumChannelID string, report ProgressFunc) (RunResult, error)
}

// ProgressFunc receives the integer progress percentage 0..100
type ProgressFunc func(pct int)

// RunResult summarizes one orchestrator invocation
type RunResult struct {
	JobID    int64
	Status   JobStatus
	Resumed  bool
	Progress Progress
}

// CheckpointRepo is the durable state surface for jobs and checkpoints
type CheckpointRepo interface {
	// GetOrCreateJob upserts the job row keyed by guild and channel.
	// A nil cutoff means now at creation; an existing row keeps its cutoff
	GetOrCreateJob(ctx context.Context, guildID, channelID string, cutoff *time.Time) (BackfillJob, error)

	// SetJobStatus transitions the job unless it is already terminal.
	// The returned status is the row's persisted status either way
	SetJobStatus(ctx context.Context, jobID int64, status JobStatus, lastThreadID string) (JobStatus, error)

	// GetOrCreateCheckpoint upserts the checkpoint row keyed by job and thread
	GetOrCreateCheckpoint(ctx context.Context, jobID int64, threadID string) (ThreadCheckpoint, error)

	// UpdateCheckpoint applies a partial update to one checkpoint row
	UpdateCheckpoint(ctx context.Context, checkpointID int64, patch CheckpointPatch) error

	// ListUnprocessedThreads returns thread ids still pending or in progress,
	// ordered by checkpoint creation so reruns resume deterministically
	ListUnprocessedThreads(ctx context.Context, jobID int64) ([]string, error)

	// GetProgress aggregates checkpoint counts for the job
	GetProgress(ctx context.Context, jobID int64) (Progress, error)
}

// SourcePort is the source conversation platform surface the pipeline consumes
type SourcePort interface {
	// ForumChannel fetches the forum container and fails when the id
	// does not name a forum channel
	ForumChannel(ctx context.Context, channelID string) (Thread, error)

	// ListThreads returns every active and public archived thread of the forum
	ListThreads(ctx context.Context, guildID, forumChannelID string) ([]Thread, error)

	// StarterMessage fetches the thread's originating message.
	// May fail transiently right after thread creation
	StarterMessage(ctx context.Context, threadID string) (ThreadMessage, error)

	// MessagesBefore pages messages newest first, strictly older than
	// beforeID when non empty, up to PageSize messages
	MessagesBefore(ctx context.Context, threadID, beforeID string) ([]ThreadMessage, error)

	// PageSize is the platform page size; a shorter page means no older
	// messages remain
	PageSize() int

	// UserDisplay resolves a user id for threads whose starter is gone
	UserDisplay(ctx context.Context, userID string) (username, avatarURL, displayName string, err error)
}

// DestWriter replicates one author, entity, or comment to the destination
type DestWriter interface {
	ResolveAuthor(ctx context.Context, foreignID, username, avatarURL, displayName string) (authorID string, err error)
	CreateEntity(ctx context.Context, e EntityDraft) (entityID string, err error)
	CreateComment(ctx context.Context, c CommentDraft) error
}

// DestRegistry hands out the destination writer for a guild
type DestRegistry interface {
	For(ctx context.Context, guildID string) (DestWriter, error)
}

// EntityDraft carries everything needed to create one destination entity
type EntityDraft struct {
	SourceID    string
	ForeignID   string
	AuthorID    string
	Title       string
	Content     string
	Attachments []MessageAttachment
	Metadata    map[string]any
	CreatedAt   time.Time
}

// CommentDraft carries everything needed to create one destination
// comment. ReferencedForeignID is the platform id of the replied-to
// message; it resolves on the destination because threads replicate
// oldest first
type CommentDraft struct {
	ForeignID           string
	AuthorID            string
	EntityID            string
	Content             string
	ReferencedForeignID string
	Attachments         []MessageAttachment
	Metadata            map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
