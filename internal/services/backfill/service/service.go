// Package service provides the backfill orchestrator implementation
package service

import (
	"context"
	"sync"
	"time"

	"threadmirror/internal/modkit/repokit"
	"threadmirror/internal/platform/logger"
	"threadmirror/internal/services/backfill/domain"
	"threadmirror/internal/services/backfill/guardrails"
)

// Config holds configuration options for the backfill service
type Config struct {
	// AdmitInterval is the fixed cadence at which new threads are
	// dispatched; <=0 -> 1s
	AdmitInterval time.Duration

	// Starter message fetch retry policy; zero values take the defaults
	StarterAttempts int           // <=0 -> 5
	StarterDelay    time.Duration // <=0 -> 500ms
}

func (c Config) withDefaults() Config {
	if c.AdmitInterval <= 0 {
		c.AdmitInterval = time.Second
	}
	if c.StarterAttempts <= 0 {
		c.StarterAttempts = 5
	}
	if c.StarterDelay <= 0 {
		c.StarterDelay = 500 * time.Millisecond
	}
	return c
}

// Service implements domain.RunnerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.CheckpointRepo]
	Source domain.SourcePort
	Dest   domain.DestRegistry
	Cfg    Config

	// newPacer is a seam for tests
	newPacer func(time.Duration) *guardrails.Pacer
}

// New constructs the backfill orchestrator
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.CheckpointRepo],
	src domain.SourcePort,
	dst domain.DestRegistry,
	cfg Config,
) *Service {
	if db == nil {
		panic("backfill.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("backfill.Service requires a non nil Repo binder")
	}
	if src == nil || dst == nil {
		panic("backfill.Service requires source and destination ports")
	}
	return &Service{
		DB: db, Binder: binder,
		Source: src, Dest: dst,
		Cfg:      cfg.withDefaults(),
		newPacer: guardrails.NewPacer,
	}
}

// Run implements domain.RunnerPort for one guild forum pair.
// Safe to invoke twice for the same pair; every mutation is an
// idempotent upsert and terminal job status is sticky
func (s *Service) Run(
	ctx context.Context,
	guildID, forumChannelID string,
	report domain.ProgressFunc,
) (domain.RunResult, error) {
	if report == nil {
		report = func(int) {}
	}
	repo := repokit.MustBind(s.Binder, s.DB)

	job, err := repo.GetOrCreateJob(ctx, guildID, forumChannelID, nil)
	if err != nil {
		report(100)
		return domain.RunResult{}, err
	}
	ctx = logger.WithJob(ctx, job.GuildID+"/"+job.ForumChannelID)
	log := logger.C(ctx)

	res := domain.RunResult{JobID: job.ID}
	if job.Status == domain.JobPausedQuota {
		res.Resumed = true
		if _, err := repo.SetJobStatus(ctx, job.ID, domain.JobRunning, ""); err != nil {
			report(100)
			return res, err
		}
		log.Info().Int64("job_id", job.ID).Msg("resuming quota paused job")
	}

	// hard failures past this point mark the whole job failed. A
	// cancelled run is a restart, not a failure: the job stays running
	// and the next invocation picks up from the checkpoints
	fail := func(cause error) (domain.RunResult, error) {
		if ctx.Err() != nil {
			res.Status = job.Status
			report(100)
			return res, cause
		}
		st, serr := repo.SetJobStatus(ctx, job.ID, domain.JobFailed, "")
		if serr != nil {
			log.Error().Err(serr).Int64("job_id", job.ID).Msg("failed to record job failure")
		}
		res.Status = st
		report(100)
		return res, cause
	}

	if _, err := s.Source.ForumChannel(ctx, forumChannelID); err != nil {
		return fail(err)
	}

	threads, err := s.Source.ListThreads(ctx, guildID, forumChannelID)
	if err != nil {
		return fail(err)
	}

	// seed checkpoints for every thread created strictly before the cutoff
	byID := make(map[string]domain.Thread, len(threads))
	for _, th := range threads {
		if !th.CreatedAt.Before(job.CutoffTimestamp) {
			continue
		}
		byID[th.ID] = th
		if _, err := repo.GetOrCreateCheckpoint(ctx, job.ID, th.ID); err != nil {
			return fail(err)
		}
	}

	todo, err := repo.ListUnprocessedThreads(ctx, job.ID)
	if err != nil {
		return fail(err)
	}
	prog, err := repo.GetProgress(ctx, job.ID)
	if err != nil {
		return fail(err)
	}

	total := prog.Total
	var mu sync.Mutex
	done := prog.Done()
	finishOne := func() {
		mu.Lock()
		done++
		pct := 0
		if total > 0 {
			pct = done * 100 / total
			if pct > 100 {
				pct = 100
			}
		}
		mu.Unlock()
		report(pct)
	}

	pacer := s.newPacer(s.Cfg.AdmitInterval)
	var pauseOnce sync.Once
	var pausedThread string

	for _, threadID := range todo {
		if pacer.Stopped() {
			break
		}
		th, ok := byID[threadID]
		if !ok {
			// checkpointed earlier but no longer listed by the platform
			log.Warn().Str("thread_id", threadID).Msg("checkpointed thread missing from listing, leaving pending")
			continue
		}
		if err := pacer.Go(ctx, func(ctx context.Context) {
			runErr := s.replicateThread(ctx, repo, job, th)
			switch {
			case runErr == nil:
				s.setCheckpointStatus(ctx, repo, job.ID, th.ID, domain.CheckpointCompleted)
			case domain.IsQuotaExceeded(runErr):
				pauseOnce.Do(func() {
					pausedThread = th.ID
					pacer.Stop()
					if _, serr := repo.SetJobStatus(ctx, job.ID, domain.JobPausedQuota, th.ID); serr != nil {
						log.Error().Err(serr).Int64("job_id", job.ID).Msg("failed to record quota pause")
					}
					log.Warn().Str("thread_id", th.ID).Err(runErr).Msg("quota exceeded, pausing job")
				})
			default:
				log.Error().Str("thread_id", th.ID).Err(runErr).Msg("thread replication failed")
				s.setCheckpointStatus(ctx, repo, job.ID, th.ID, domain.CheckpointFailed)
			}
			finishOne()
		}); err != nil {
			// admission wait cut short by cancellation
			pacer.Drain()
			return fail(err)
		}
	}

	pacer.Drain()

	if pausedThread != "" {
		res.Status = domain.JobPausedQuota
	} else {
		st, err := repo.SetJobStatus(ctx, job.ID, domain.JobCompleted, "")
		if err != nil {
			return fail(err)
		}
		res.Status = st
	}

	if res.Progress, err = repo.GetProgress(ctx, job.ID); err != nil {
		log.Error().Err(err).Int64("job_id", job.ID).Msg("final progress read failed")
	}
	// the status field, not the percentage, says whether work remains
	report(100)
	return res, nil
}

// setCheckpointStatus transitions one checkpoint and logs refusals
func (s *Service) setCheckpointStatus(
	ctx context.Context,
	repo domain.CheckpointRepo,
	jobID int64,
	threadID string,
	status domain.CheckpointStatus,
) {
	cp, err := repo.GetOrCreateCheckpoint(ctx, jobID, threadID)
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("thread_id", threadID).Msg("checkpoint lookup failed")
		return
	}
	if err := repo.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{Status: &status}); err != nil {
		logger.C(ctx).Error().Err(err).
			Str("thread_id", threadID).
			Str("status", string(status)).
			Msg("checkpoint transition refused")
	}
}
