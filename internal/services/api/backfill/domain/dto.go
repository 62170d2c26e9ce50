// Package domain holds the backfill API transport shapes
package domain

// SubmitInput is the POST /backfill payload
type SubmitInput struct {
	GuildID        string `json:"guildId" validate:"required,snowflake"`
	ForumChannelID string `json:"forumChannelId" validate:"required,snowflake"`
}

// SubmitResult is the POST /backfill response
type SubmitResult struct {
	JobID string `json:"jobId"`
}

// StatusResult is the GET /backfill/{jobId} response
type StatusResult struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}
