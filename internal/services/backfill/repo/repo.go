// Package repo provides postgres access for backfill job and checkpoint state
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"threadmirror/internal/modkit/repokit"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/services/backfill/domain"
)

type (
	// PG is a Postgres binder for domain.CheckpointRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.CheckpointRepo
func NewPG() repokit.Binder[domain.CheckpointRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.CheckpointRepo { return &queries{q: q} }

const jobColumns = `id, guild_id, forum_channel_id, cutoff_timestamp, status,
	COALESCE(last_processed_thread_id, ''), created_at, updated_at`

// GetOrCreateJob upserts the job row for a guild and channel pair.
// The no-op conflict update makes concurrent submissions converge on
// the same row without disturbing an existing cutoff or status
func (r *queries) GetOrCreateJob(
	ctx context.Context,
	guildID, channelID string,
	cutoff *time.Time,
) (domain.BackfillJob, error) {
	var cutoffArg any
	if cutoff != nil {
		cutoffArg = cutoff.UTC()
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO backfill_jobs (guild_id, forum_channel_id, cutoff_timestamp, status)
		VALUES ($1, $2, COALESCE($3::timestamptz, now()), 'running')
		ON CONFLICT (guild_id, forum_channel_id)
		DO UPDATE SET updated_at = backfill_jobs.updated_at
		RETURNING `+jobColumns,
		guildID, channelID, cutoffArg,
	)
	return scanJob(row)
}

// SetJobStatus transitions the job unless it already reached a terminal
// status. Terminal rows are left untouched and their persisted status is
// returned so callers can observe the refusal
func (r *queries) SetJobStatus(
	ctx context.Context,
	jobID int64,
	status domain.JobStatus,
	lastThreadID string,
) (domain.JobStatus, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE backfill_jobs
		SET status = $2,
			last_processed_thread_id = COALESCE(NULLIF($3, ''), last_processed_thread_id),
			updated_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
		RETURNING status
	`, jobID, string(status), lastThreadID)

	var got string
	if err := row.Scan(&got); err == nil {
		return domain.JobStatus(got), nil
	}

	// terminal or missing row; report what is persisted
	row = r.q.QueryRow(ctx, `SELECT status FROM backfill_jobs WHERE id = $1`, jobID)
	if err := row.Scan(&got); err != nil {
		return "", perr.DBf("job %d status lookup: %v", jobID, err)
	}
	return domain.JobStatus(got), nil
}

const checkpointColumns = `id, backfill_job_id, thread_id,
	COALESCE(last_processed_message_id, ''), oldest_processed_timestamp,
	status, created_at, updated_at`

// GetOrCreateCheckpoint upserts the checkpoint row for a job and thread pair
func (r *queries) GetOrCreateCheckpoint(
	ctx context.Context,
	jobID int64,
	threadID string,
) (domain.ThreadCheckpoint, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO thread_checkpoints (backfill_job_id, thread_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (backfill_job_id, thread_id)
		DO UPDATE SET updated_at = thread_checkpoints.updated_at
		RETURNING `+checkpointColumns,
		jobID, threadID,
	)
	return scanCheckpoint(row)
}

// UpdateCheckpoint applies a partial update. Status changes are guarded
// by the checkpoint state machine so illegal transitions are rejected
func (r *queries) UpdateCheckpoint(ctx context.Context, checkpointID int64, patch domain.CheckpointPatch) error {
	setParts := []string{"updated_at = now()"}
	args := []any{}
	idx := 1

	add := func(col string, v any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, v)
		idx++
	}

	if patch.LastProcessedMessageID != nil {
		add("last_processed_message_id", *patch.LastProcessedMessageID)
	}
	if patch.OldestProcessedTimestamp != nil {
		add("oldest_processed_timestamp", patch.OldestProcessedTimestamp.UTC())
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}

	where := fmt.Sprintf("id = $%d", idx)
	args = append(args, checkpointID)
	idx++
	if patch.Status != nil {
		where += fmt.Sprintf(" AND status = ANY($%d)", idx)
		args = append(args, transitionSources(*patch.Status))
	}

	tag, err := r.q.Exec(ctx,
		"UPDATE thread_checkpoints SET "+strings.Join(setParts, ", ")+" WHERE "+where,
		args...,
	)
	if err != nil {
		return perr.DBf("checkpoint %d update: %v", checkpointID, err)
	}
	if tag.RowsAffected() == 0 && patch.Status != nil {
		return perr.Newf(perr.ErrorCodeConflict,
			"checkpoint %d refuses transition to %s", checkpointID, *patch.Status)
	}
	return nil
}

// ListUnprocessedThreads returns thread ids still pending or in progress,
// in checkpoint creation order so reruns resume deterministically
func (r *queries) ListUnprocessedThreads(ctx context.Context, jobID int64) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT thread_id FROM thread_checkpoints
		WHERE backfill_job_id = $1 AND status IN ('pending', 'in_progress')
		ORDER BY created_at, id
	`, jobID)
	if err != nil {
		return nil, perr.DBf("job %d unprocessed threads: %v", jobID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetProgress aggregates checkpoint counts for one job
func (r *queries) GetProgress(ctx context.Context, jobID int64) (domain.Progress, error) {
	row := r.q.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'in_progress')
		FROM thread_checkpoints
		WHERE backfill_job_id = $1
	`, jobID)

	var p domain.Progress
	if err := row.Scan(&p.Total, &p.Completed, &p.Failed, &p.InProgress); err != nil {
		return domain.Progress{}, perr.DBf("job %d progress: %v", jobID, err)
	}
	return p, nil
}

// transitionSources lists the statuses CanTransition allows to reach target
func transitionSources(target domain.CheckpointStatus) []string {
	all := []domain.CheckpointStatus{
		domain.CheckpointPending,
		domain.CheckpointInProgress,
		domain.CheckpointCompleted,
		domain.CheckpointFailed,
	}
	var from []string
	for _, s := range all {
		if s.CanTransition(target) {
			from = append(from, string(s))
		}
	}
	return from
}

func scanJob(row repokit.Row) (domain.BackfillJob, error) {
	var j domain.BackfillJob
	var status string
	if err := row.Scan(
		&j.ID, &j.GuildID, &j.ForumChannelID, &j.CutoffTimestamp, &status,
		&j.LastProcessedThreadID, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return domain.BackfillJob{}, perr.FromPostgresf(err, "scan backfill job")
	}
	j.Status = domain.JobStatus(status)
	return j, nil
}

func scanCheckpoint(row repokit.Row) (domain.ThreadCheckpoint, error) {
	var c domain.ThreadCheckpoint
	var status string
	var oldest sql.NullTime
	if err := row.Scan(
		&c.ID, &c.BackfillJobID, &c.ThreadID,
		&c.LastProcessedMessageID, &oldest, &status,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.ThreadCheckpoint{}, perr.FromPostgresf(err, "scan thread checkpoint")
	}
	if oldest.Valid {
		t := oldest.Time
		c.OldestProcessedTimestamp = &t
	}
	c.Status = domain.CheckpointStatus(status)
	return c, nil
}
