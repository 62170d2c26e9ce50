// Package source bridges the Discord REST adapter onto the backfill domain ports
package source

import (
	"context"
	"encoding/json"

	"threadmirror/internal/adapters/forum/discord"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/services/backfill/domain"
)

// Discord implements domain.SourcePort over the REST client
type Discord struct {
	c *discord.Client
}

// NewDiscord wraps a Discord client
func NewDiscord(c *discord.Client) *Discord { return &Discord{c: c} }

// ForumChannel fetches the forum container and rejects non forum channels
func (d *Discord) ForumChannel(ctx context.Context, channelID string) (domain.Thread, error) {
	ch, err := d.c.Channel(ctx, channelID)
	if err != nil {
		return domain.Thread{}, err
	}
	if !ch.IsForum() {
		return domain.Thread{}, perr.InvalidArgf("channel %s is not a forum channel", channelID)
	}
	return toThread(ch), nil
}

// ListThreads returns every active and public archived thread of the forum
func (d *Discord) ListThreads(ctx context.Context, guildID, forumChannelID string) ([]domain.Thread, error) {
	active, err := d.c.ActiveGuildThreads(ctx, guildID)
	if err != nil {
		return nil, err
	}
	archived, err := d.c.ArchivedPublicThreads(ctx, forumChannelID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []domain.Thread
	for _, ch := range active {
		if ch.ParentID != forumChannelID || !ch.IsPublicThread() {
			continue
		}
		seen[ch.ID] = true
		out = append(out, toThread(ch))
	}
	for _, ch := range archived {
		if seen[ch.ID] {
			continue
		}
		out = append(out, toThread(ch))
	}
	return out, nil
}

// StarterMessage fetches the thread's originating message.
// Discord stores it as a message whose id equals the thread id
func (d *Discord) StarterMessage(ctx context.Context, threadID string) (domain.ThreadMessage, error) {
	msg, err := d.c.Message(ctx, threadID, threadID)
	if err != nil {
		return domain.ThreadMessage{}, err
	}
	return toMessage(msg, threadID), nil
}

// MessagesBefore pages messages newest first, strictly older than beforeID
func (d *Discord) MessagesBefore(ctx context.Context, threadID, beforeID string) ([]domain.ThreadMessage, error) {
	raw, err := d.c.Messages(ctx, threadID, beforeID, discord.MessagePageSize)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ThreadMessage, 0, len(raw))
	for _, m := range raw {
		out = append(out, toMessage(m, threadID))
	}
	return out, nil
}

// PageSize reports the platform message page size
func (d *Discord) PageSize() int { return discord.MessagePageSize }

// UserDisplay resolves a user id for threads whose starter message is gone
func (d *Discord) UserDisplay(ctx context.Context, userID string) (string, string, string, error) {
	u, err := d.c.User(ctx, userID)
	if err != nil {
		return "", "", "", err
	}
	return u.Username, u.AvatarURL(avatarSize), u.GlobalName, nil
}

// avatarSize is the CDN variant mirrored to the destination
const avatarSize = 128

func toThread(ch discord.Channel) domain.Thread {
	return domain.Thread{
		ID:        ch.ID,
		ParentID:  ch.ParentID,
		GuildID:   ch.GuildID,
		Name:      ch.Name,
		OwnerID:   ch.OwnerID,
		CreatedAt: ch.CreatedAt(),
	}
}

func toMessage(m discord.Message, threadID string) domain.ThreadMessage {
	out := domain.ThreadMessage{
		ID:                m.ID,
		ThreadID:          threadID,
		GuildID:           m.GuildID,
		Content:           m.Content,
		AuthorID:          m.Author.ID,
		AuthorUsername:    m.Author.Username,
		AuthorAvatarURL:   m.Author.AvatarURL(avatarSize),
		AuthorDisplayName: m.Author.GlobalName,
		CreatedAt:         m.Timestamp,
		EditedAt:          m.EditedTimestamp,
		IsStarter:         m.ID == threadID || m.Type == discord.MessageTypeThreadStarter,
	}
	if m.Reference != nil {
		out.ReferencedMessageID = m.Reference.MessageID
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, domain.MessageAttachment{
			ID:          a.ID,
			Name:        a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	for _, raw := range m.Embeds {
		var e any
		if err := json.Unmarshal(raw, &e); err == nil {
			out.Embeds = append(out.Embeds, e)
		}
	}
	return out
}
