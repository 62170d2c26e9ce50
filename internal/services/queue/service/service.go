// Package service contains the queue submit, status, and worker workflows
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"threadmirror/internal/modkit/repokit"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/logger"
	bfdomain "threadmirror/internal/services/backfill/domain"
	"threadmirror/internal/services/queue/domain"
)

// Config carries runtime knobs for the queue worker
type Config struct {
	// PollInterval is the idle poll cadence; <=0 -> 1s
	PollInterval time.Duration

	// StaleAfter is how long an active claim may go without a progress
	// write before it is requeued for another worker; <=0 -> 5m
	StaleAfter time.Duration
}

// Svc implements the queue submitter, status, and worker ports
type Svc struct {
	Repo   domain.Repo
	binder repokit.Binder[domain.Repo]
	db     repokit.TxRunner
	runner bfdomain.RunnerPort
	config Config
}

// New constructs a queue service around the backfill runner
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], runner bfdomain.RunnerPort, cfg Config) *Svc {
	if db == nil {
		panic("queue.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("queue.Service requires a non nil Repo binder")
	}
	if runner == nil {
		panic("queue.Service requires a backfill runner")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	return &Svc{
		Repo:   repokit.MustBind(binder, db),
		binder: binder,
		db:     db,
		runner: runner,
		config: cfg,
	}
}

// NewSubmit constructs only the submit and status surface, for binaries
// that never drain the queue
func NewSubmit(db repokit.TxRunner, binder repokit.Binder[domain.Repo]) *Svc {
	if db == nil {
		panic("queue.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("queue.Service requires a non nil Repo binder")
	}
	return &Svc{
		Repo:   repokit.MustBind(binder, db),
		binder: binder,
		db:     db,
	}
}

// Submit implements domain.SubmitterPort
func (s *Svc) Submit(ctx context.Context, guildID, forumChannelID string) (domain.QueueJob, error) {
	job, err := s.Repo.Enqueue(ctx, guildID, forumChannelID)
	if err != nil {
		return domain.QueueJob{}, err
	}
	logger.C(ctx).Info().
		Str("queue_id", job.ID.String()).
		Str("guild_id", guildID).
		Str("forum_channel_id", forumChannelID).
		Msg("backfill submitted")
	return job, nil
}

// Get implements domain.StatusPort
func (s *Svc) Get(ctx context.Context, id uuid.UUID) (domain.QueueJob, error) {
	return s.Repo.Get(ctx, id)
}

// Run implements domain.WorkerPort; it drains the queue until ctx is done
func (s *Svc) Run(ctx context.Context) error {
	if s.runner == nil {
		return perr.Internalf("queue worker requires a backfill runner")
	}
	log := logger.Named("queue")
	t := time.NewTicker(s.config.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if n, err := s.Repo.ReclaimStale(ctx, s.config.StaleAfter); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Msg("stale claim reclaim failed")
			} else if n > 0 {
				log.Warn().Int("requeued", n).Msg("reclaimed orphaned submissions")
			}
			for {
				job, ok, err := s.Repo.ClaimNext(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Error().Err(err).Msg("queue claim failed")
					break
				}
				if !ok {
					break
				}
				s.process(ctx, job)
			}
		}
	}
}

// process runs one claimed submission to its terminal state
func (s *Svc) process(ctx context.Context, job domain.QueueJob) {
	log := logger.Named("queue").With().Str("queue_id", job.ID.String()).Logger()
	log.Info().
		Str("guild_id", job.GuildID).
		Str("forum_channel_id", job.ForumChannelID).
		Int("attempts", job.Attempts).
		Msg("backfill claimed")

	report := func(pct int) {
		if err := s.Repo.SetProgress(ctx, job.ID, pct); err != nil {
			log.Error().Err(err).Int("pct", pct).Msg("progress write failed")
		}
	}

	res, err := s.runner.Run(ctx, job.GuildID, job.ForumChannelID, report)
	if ctx.Err() != nil {
		// shutdown mid run. The submission stays active so the stale
		// claim reclaim hands it to the next worker
		log.Warn().Msg("shutdown during backfill, leaving submission for reclaim")
		return
	}
	if res.JobID != 0 {
		if berr := s.Repo.BindBackfillJob(ctx, job.ID, res.JobID, res.Resumed); berr != nil {
			log.Error().Err(berr).Msg("backfill job bind failed")
		}
	}

	state := domain.StateCompleted
	errText := ""
	switch {
	case err != nil:
		state = domain.StateFailed
		errText = err.Error()
		log.Error().Err(err).Msg("backfill failed")
	case res.Status == bfdomain.JobPausedQuota:
		// paused jobs surface as failed submissions with an explanatory
		// message; resubmitting the pair resumes from the checkpoints
		state = domain.StateFailed
		errText = "destination quota exhausted, job paused; resubmit to resume"
		log.Warn().Msg("backfill paused on quota")
	default:
		log.Info().Int("progress", res.Progress.Percent()).Msg("backfill completed")
	}

	if ferr := s.Repo.Finish(ctx, job.ID, state, 100, errText); ferr != nil {
		log.Error().Err(ferr).Msg("queue finish write failed")
	}
}
