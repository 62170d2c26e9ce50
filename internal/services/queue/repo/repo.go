// Package repo provides postgres access for the backfill submission queue
package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"threadmirror/internal/modkit/repokit"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/services/queue/domain"
)

type (
	// PG is a Postgres binder for domain.Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

const jobColumns = `id, guild_id, forum_channel_id, state, progress, resuming,
	COALESCE(error, ''), backfill_job_id, attempts,
	created_at, updated_at, started_at, finished_at`

// qualified for UPDATE ... FROM returns where bare ids would be ambiguous
const jobColumnsQ = `q.id, q.guild_id, q.forum_channel_id, q.state, q.progress, q.resuming,
	COALESCE(q.error, ''), q.backfill_job_id, q.attempts,
	q.created_at, q.updated_at, q.started_at, q.finished_at`

// Enqueue inserts a queued submission unless a live one already exists
// for the pair. Two racing submitters may both pass the existence read;
// the queue is at least once so the worker tolerates the duplicate
func (r *queries) Enqueue(ctx context.Context, guildID, forumChannelID string) (domain.QueueJob, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM backfill_queue
		WHERE guild_id = $1 AND forum_channel_id = $2
			AND state IN ('queued', 'active')
		ORDER BY created_at
		LIMIT 1
	`, guildID, forumChannelID)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.QueueJob{}, err
	}

	row = r.q.QueryRow(ctx, `
		INSERT INTO backfill_queue (id, guild_id, forum_channel_id, state)
		VALUES ($1, $2, $3, 'queued')
		RETURNING `+jobColumns,
		uuid.New(), guildID, forumChannelID,
	)
	return scanJob(row)
}

// Get fetches one submission by id
func (r *queries) Get(ctx context.Context, id uuid.UUID) (domain.QueueJob, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM backfill_queue
		WHERE id = $1
	`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QueueJob{}, perr.NotFoundf("backfill job %s not found", id)
		}
		return domain.QueueJob{}, err
	}
	return job, nil
}

// ClaimNext flips the oldest queued submission to active.
// SKIP LOCKED keeps concurrent workers off each other's claims
func (r *queries) ClaimNext(ctx context.Context) (domain.QueueJob, bool, error) {
	row := r.q.QueryRow(ctx, `
		WITH cte AS (
			SELECT id
			FROM backfill_queue
			WHERE state = 'queued'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE backfill_queue q
		SET state = 'active',
			attempts = q.attempts + 1,
			started_at = now(),
			updated_at = now()
		FROM cte
		WHERE q.id = cte.id
		RETURNING `+jobColumnsQ,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QueueJob{}, false, nil
		}
		return domain.QueueJob{}, false, err
	}
	return job, true, nil
}

// ReclaimStale hands orphaned claims back to the queue. An active row
// whose updated_at stopped moving belongs to a worker that died before
// Finish; the orchestrator's upserts make the redelivery safe
func (r *queries) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE backfill_queue
		SET state = 'queued',
			started_at = NULL,
			updated_at = now()
		WHERE state = 'active'
			AND updated_at < now() - make_interval(secs => $1)
	`, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SetProgress records the progress percentage of an active submission
func (r *queries) SetProgress(ctx context.Context, id uuid.UUID, pct int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE backfill_queue
		SET progress = $2, updated_at = now()
		WHERE id = $1
	`, id, pct)
	return err
}

// BindBackfillJob links the submission to its durable backfill job row
func (r *queries) BindBackfillJob(ctx context.Context, id uuid.UUID, backfillJobID int64, resuming bool) error {
	_, err := r.q.Exec(ctx, `
		UPDATE backfill_queue
		SET backfill_job_id = $2, resuming = $3, updated_at = now()
		WHERE id = $1
	`, id, backfillJobID, resuming)
	return err
}

// Finish records the terminal state, final progress, and error text
func (r *queries) Finish(ctx context.Context, id uuid.UUID, state domain.JobState, pct int, errText string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE backfill_queue
		SET state = $2,
			progress = $3,
			error = NULLIF($4, ''),
			finished_at = now(),
			updated_at = now()
		WHERE id = $1
	`, id, string(state), pct, errText)
	return err
}

func scanJob(row repokit.Row) (domain.QueueJob, error) {
	var (
		j          domain.QueueJob
		state      string
		backfillID sql.NullInt64
		started    sql.NullTime
		finished   sql.NullTime
	)
	if err := row.Scan(
		&j.ID, &j.GuildID, &j.ForumChannelID, &state, &j.Progress, &j.Resuming,
		&j.Error, &backfillID, &j.Attempts,
		&j.CreatedAt, &j.UpdatedAt, &started, &finished,
	); err != nil {
		return domain.QueueJob{}, err
	}
	j.State = domain.JobState(state)
	if backfillID.Valid {
		j.BackfillJobID = &backfillID.Int64
	}
	if started.Valid {
		t := started.Time
		j.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		j.FinishedAt = &t
	}
	return j, nil
}
