package service

import (
	"context"

	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/logger"
	"threadmirror/internal/services/backfill/domain"
	"threadmirror/internal/services/backfill/guardrails"
)

// replicateThread mirrors one source thread into the destination as an
// entity plus comments, persisting checkpoint state as it goes.
// Quota errors from the destination propagate untouched; other per
// message errors are logged and skipped
func (s *Service) replicateThread(
	ctx context.Context,
	repo domain.CheckpointRepo,
	job domain.BackfillJob,
	th domain.Thread,
) error {
	log := logger.C(ctx).With().Str("thread_id", th.ID).Logger()

	cp, err := repo.GetOrCreateCheckpoint(ctx, job.ID, th.ID)
	if err != nil {
		return err
	}
	if cp.Status == domain.CheckpointCompleted {
		return nil
	}
	if cp.Status == domain.CheckpointFailed {
		// retried threads re-enter through pending
		if err := s.patchStatus(ctx, repo, cp.ID, domain.CheckpointPending); err != nil {
			return err
		}
		cp.Status = domain.CheckpointPending
	}
	if cp.Status == domain.CheckpointPending {
		if err := s.patchStatus(ctx, repo, cp.ID, domain.CheckpointInProgress); err != nil {
			return err
		}
	}

	writer, err := s.Dest.For(ctx, job.GuildID)
	if err != nil {
		return err
	}

	starter, err := s.fetchStarter(ctx, th)
	if err != nil {
		return err
	}

	entityID, err := s.replicateEntity(ctx, writer, job, th, starter)
	if err != nil {
		return err
	}

	oldestTS := cp.OldestProcessedTimestamp
	before := cp.LastProcessedMessageID
	for {
		page, err := s.Source.MessagesBefore(ctx, th.ID, before)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		// pages arrive newest first; replicate oldest first so replies
		// land after the messages they reference
		for i := len(page) - 1; i >= 0; i-- {
			m := page[i]
			if m.IsStarter || !m.CreatedAt.Before(job.CutoffTimestamp) {
				continue
			}
			if err := s.replicateMessage(ctx, writer, entityID, job, th, m); err != nil {
				if domain.IsQuotaExceeded(err) {
					return err
				}
				log.Error().Str("message_id", m.ID).Err(err).Msg("message replication failed, skipping")
				continue
			}
			if oldestTS == nil || m.CreatedAt.Before(*oldestTS) {
				ts := m.CreatedAt
				oldestTS = &ts
				if err := repo.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{
					OldestProcessedTimestamp: &ts,
				}); err != nil {
					return err
				}
			}
		}

		// the cursor moves to the oldest fetched id, replicated or not,
		// so pagination always advances past fully discarded pages
		before = page[len(page)-1].ID
		if err := repo.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{
			LastProcessedMessageID: &before,
		}); err != nil {
			return err
		}

		// a short page means no older messages remain
		if len(page) < s.Source.PageSize() {
			break
		}
	}

	log.Info().Msg("thread replicated")
	return nil
}

// replicateEntity resolves the thread author and creates the destination
// entity. Threads whose starter vanished fall back to the thread owner
func (s *Service) replicateEntity(
	ctx context.Context,
	w domain.DestWriter,
	job domain.BackfillJob,
	th domain.Thread,
	starter *domain.ThreadMessage,
) (string, error) {
	var authorID string
	meta := map[string]any{"guildId": job.GuildID}

	if starter != nil {
		id, err := w.ResolveAuthor(ctx, starter.AuthorID, starter.AuthorUsername, starter.AuthorAvatarURL, starter.AuthorDisplayName)
		if err != nil {
			return "", err
		}
		authorID = id
		meta["starterMsgId"] = starter.ID
		if len(starter.Embeds) > 0 {
			meta["embeds"] = starter.Embeds
		}
	} else {
		if th.OwnerID == "" {
			return "", perr.NotFoundf("thread %s has no resolvable author", th.ID)
		}
		username, avatarURL, displayName, err := s.Source.UserDisplay(ctx, th.OwnerID)
		if err != nil {
			return "", err
		}
		id, err := w.ResolveAuthor(ctx, th.OwnerID, username, avatarURL, displayName)
		if err != nil {
			return "", err
		}
		authorID = id
	}

	draft := domain.EntityDraft{
		SourceID:  "discord_channel_" + th.ParentID,
		ForeignID: th.ID,
		AuthorID:  authorID,
		Title:     th.Name,
		Metadata:  meta,
		CreatedAt: th.CreatedAt,
	}
	if starter != nil {
		draft.Content = starter.Content
		draft.Attachments = starter.Attachments
	}
	return w.CreateEntity(ctx, draft)
}

// replicateMessage mirrors one message as a destination comment
func (s *Service) replicateMessage(
	ctx context.Context,
	w domain.DestWriter,
	entityID string,
	job domain.BackfillJob,
	th domain.Thread,
	m domain.ThreadMessage,
) error {
	authorID, err := w.ResolveAuthor(ctx, m.AuthorID, m.AuthorUsername, m.AuthorAvatarURL, m.AuthorDisplayName)
	if err != nil {
		return err
	}

	meta := map[string]any{"guildId": job.GuildID, "channelId": th.ID}
	if len(m.Embeds) > 0 {
		meta["embeds"] = m.Embeds
	}

	updated := m.CreatedAt
	if m.EditedAt != nil {
		updated = *m.EditedAt
	}
	return w.CreateComment(ctx, domain.CommentDraft{
		ForeignID:           m.ID,
		AuthorID:            authorID,
		EntityID:            entityID,
		Content:             m.Content,
		ReferencedForeignID: m.ReferencedMessageID,
		Attachments:         m.Attachments,
		Metadata:            meta,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           updated,
	})
}

// fetchStarter retries the starter fetch a bounded number of times and
// treats persistent absence as "no starter" rather than an error
func (s *Service) fetchStarter(ctx context.Context, th domain.Thread) (*domain.ThreadMessage, error) {
	var msg domain.ThreadMessage
	err := guardrails.Retry{
		Attempts: s.Cfg.StarterAttempts,
		Delay:    s.Cfg.StarterDelay,
	}.Do(ctx, func(ctx context.Context) error {
		m, err := s.Source.StarterMessage(ctx, th.ID)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	switch {
	case err == nil:
		return &msg, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		return nil, nil
	default:
		logger.C(ctx).Warn().Str("thread_id", th.ID).Err(err).Msg("starter fetch exhausted retries, proceeding without starter")
		return nil, nil
	}
}

func (s *Service) patchStatus(ctx context.Context, repo domain.CheckpointRepo, cpID int64, st domain.CheckpointStatus) error {
	return repo.UpdateCheckpoint(ctx, cpID, domain.CheckpointPatch{Status: &st})
}
