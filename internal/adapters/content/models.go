package content

import "time"

// AuthorInput identifies a platform user to resolve or create on the content side
type AuthorInput struct {
	ForeignID string         `json:"foreignId"`
	Username  string         `json:"username"`
	Avatar    string         `json:"avatar,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Author is the content side user record
type Author struct {
	ID        string `json:"id"`
	ForeignID string `json:"foreignId"`
	Username  string `json:"username"`
}

// AttachmentInput mirrors one platform attachment onto the content side
type AttachmentInput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// EntityInput creates or updates the record representing a whole thread
type EntityInput struct {
	SourceID    string            `json:"sourceId"`
	ForeignID   string            `json:"foreignId"`
	UserID      string            `json:"userId"`
	Title       string            `json:"title"`
	Content     string            `json:"content,omitempty"`
	Attachments []AttachmentInput `json:"attachments,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
}

// Entity is the content side thread record
type Entity struct {
	ID        string `json:"id"`
	ForeignID string `json:"foreignId"`
}

// CommentInput creates the record representing one message inside an entity.
// ReferencedCommentID carries the platform id of the replied-to message so
// the destination can thread the comment under its parent
type CommentInput struct {
	ForeignID           string            `json:"foreignId"`
	UserID              string            `json:"userId"`
	EntityID            string            `json:"entityId"`
	Content             string            `json:"content"`
	ReferencedCommentID string            `json:"referencedCommentId,omitempty"`
	Attachments         []AttachmentInput `json:"attachments,omitempty"`
	Metadata            map[string]any    `json:"metadata,omitempty"`
	CreatedAt           *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt           *time.Time        `json:"updatedAt,omitempty"`
}

// Comment is the content side message record
type Comment struct {
	ID        string `json:"id"`
	ForeignID string `json:"foreignId"`
}
