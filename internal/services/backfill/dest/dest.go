// Package dest bridges the content service adapter onto the backfill domain ports
package dest

import (
	"context"

	"threadmirror/internal/adapters/content"
	"threadmirror/internal/services/backfill/domain"
)

// Registry implements domain.DestRegistry over the content client registry
type Registry struct {
	r *content.Registry
}

// NewRegistry wraps a content registry
func NewRegistry(r *content.Registry) *Registry { return &Registry{r: r} }

// For returns the destination writer for a guild
func (x *Registry) For(ctx context.Context, guildID string) (domain.DestWriter, error) {
	w, err := x.r.For(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return writer{w: w}, nil
}

type writer struct {
	w content.Writer
}

func (w writer) ResolveAuthor(
	ctx context.Context,
	foreignID, username, avatarURL, displayName string,
) (string, error) {
	a, err := w.w.ResolveAuthor(ctx, content.AuthorInput{
		ForeignID: foreignID,
		Username:  username,
		Avatar:    avatarURL,
		Metadata:  map[string]any{"displayName": displayName},
	})
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (w writer) CreateEntity(ctx context.Context, e domain.EntityDraft) (string, error) {
	created := e.CreatedAt
	ent, err := w.w.CreateEntity(ctx, content.EntityInput{
		SourceID:    e.SourceID,
		ForeignID:   e.ForeignID,
		UserID:      e.AuthorID,
		Title:       e.Title,
		Content:     e.Content,
		Attachments: toAttachments(e.Attachments),
		Metadata:    e.Metadata,
		CreatedAt:   &created,
	})
	if err != nil {
		return "", err
	}
	return ent.ID, nil
}

func (w writer) CreateComment(ctx context.Context, c domain.CommentDraft) error {
	created, updated := c.CreatedAt, c.UpdatedAt
	_, err := w.w.CreateComment(ctx, content.CommentInput{
		ForeignID:           c.ForeignID,
		UserID:              c.AuthorID,
		EntityID:            c.EntityID,
		Content:             c.Content,
		ReferencedCommentID: c.ReferencedForeignID,
		Attachments:         toAttachments(c.Attachments),
		Metadata:            c.Metadata,
		CreatedAt:           &created,
		UpdatedAt:           &updated,
	})
	return err
}

func toAttachments(in []domain.MessageAttachment) []content.AttachmentInput {
	if len(in) == 0 {
		return nil
	}
	out := make([]content.AttachmentInput, 0, len(in))
	for _, a := range in {
		out = append(out, content.AttachmentInput{
			ID:          a.ID,
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return out
}
