package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubmitterPort accepts new backfill submissions
type SubmitterPort interface {
	// Submit enqueues a guild forum pair, reusing any existing
	// non terminal submission for the same pair
	Submit(ctx context.Context, guildID, forumChannelID string) (QueueJob, error)
}

// StatusPort reads submission state for the HTTP surface
type StatusPort interface {
	Get(ctx context.Context, id uuid.UUID) (QueueJob, error)
}

// WorkerPort runs the queue draining loop until ctx is done
type WorkerPort interface {
	Run(ctx context.Context) error
}

// Repo is the durable queue surface
type Repo interface {
	// Enqueue inserts a queued job unless a queued or active one already
	// exists for the pair, in which case that one is returned
	Enqueue(ctx context.Context, guildID, forumChannelID string) (QueueJob, error)

	// Get fetches one job by id
	Get(ctx context.Context, id uuid.UUID) (QueueJob, error)

	// ClaimNext flips the oldest queued job to active under a
	// FOR UPDATE SKIP LOCKED lease so concurrent workers never
	// double claim. ok is false when the queue is empty
	ClaimNext(ctx context.Context) (job QueueJob, ok bool, err error)

	// ReclaimStale requeues active jobs whose claim went quiet for
	// longer than olderThan. A worker killed mid run never reaches
	// Finish, so its claim must be handed back; progress writes keep
	// a live claim's lease fresh. Returns the number requeued
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)

	// SetProgress records the progress percentage of an active job
	SetProgress(ctx context.Context, id uuid.UUID, pct int) error

	// BindBackfillJob links the claimed submission to its durable
	// backfill job row once known
	BindBackfillJob(ctx context.Context, id uuid.UUID, backfillJobID int64, resuming bool) error

	// Finish records the terminal state, final progress, and error text
	Finish(ctx context.Context, id uuid.UUID, state JobState, pct int, errText string) error
}
