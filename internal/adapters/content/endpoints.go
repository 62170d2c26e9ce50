package content

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ResolveAuthor fetches the content side user for a platform user,
// creating it when absent
func (c *Client) ResolveAuthor(ctx context.Context, in AuthorInput) (Author, error) {
	var out Author
	path := fmt.Sprintf("/projects/%s/users/resolve", c.opts.ProjectID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return Author{}, err
	}
	return out, nil
}

// CreateEntity creates the entity for one thread, idempotent on foreign id
func (c *Client) CreateEntity(ctx context.Context, in EntityInput) (Entity, error) {
	var out Entity
	path := fmt.Sprintf("/projects/%s/entities", c.opts.ProjectID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return Entity{}, err
	}
	return out, nil
}

// EntityByForeignID fetches the entity mapped to a thread id
func (c *Client) EntityByForeignID(ctx context.Context, foreignID string) (Entity, error) {
	var out Entity
	path := fmt.Sprintf("/projects/%s/entities/foreign/%s", c.opts.ProjectID, url.PathEscape(foreignID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Entity{}, err
	}
	return out, nil
}

// UpdateEntity patches the title or content of an existing entity
func (c *Client) UpdateEntity(ctx context.Context, entityID string, patch map[string]any) error {
	path := fmt.Sprintf("/projects/%s/entities/%s", c.opts.ProjectID, url.PathEscape(entityID))
	return c.do(ctx, http.MethodPatch, path, patch, nil)
}

// CreateComment creates the comment for one message, idempotent on foreign id
func (c *Client) CreateComment(ctx context.Context, in CommentInput) (Comment, error) {
	var out Comment
	path := fmt.Sprintf("/projects/%s/comments", c.opts.ProjectID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return Comment{}, err
	}
	return out, nil
}

// UpdateComment patches the content of the comment mapped to a message id
func (c *Client) UpdateComment(ctx context.Context, foreignID, body string) error {
	path := fmt.Sprintf("/projects/%s/comments/foreign/%s", c.opts.ProjectID, url.PathEscape(foreignID))
	return c.do(ctx, http.MethodPatch, path, map[string]any{"content": body}, nil)
}

// DeleteComment removes the comment mapped to a message id
func (c *Client) DeleteComment(ctx context.Context, foreignID string) error {
	path := fmt.Sprintf("/projects/%s/comments/foreign/%s", c.opts.ProjectID, url.PathEscape(foreignID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
