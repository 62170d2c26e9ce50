package discord

import (
	"encoding/json"
	"strconv"
	"time"
)

// Channel types we care about
const (
	ChannelTypeGuildForum    = 15
	ChannelTypePublicThread  = 11
	ChannelTypePrivateThread = 12
)

// Message types we care about
const (
	MessageTypeDefault       = 0
	MessageTypeReply         = 19
	MessageTypeThreadStarter = 21
)

// discordEpochMS is the Discord snowflake epoch in unix milliseconds
const discordEpochMS = 1420070400000

// Channel is a partial Discord channel or thread document with fields we use
type Channel struct {
	ID             string          `json:"id"`
	Type           int             `json:"type"`
	Name           string          `json:"name"`
	GuildID        string          `json:"guild_id"`
	ParentID       string          `json:"parent_id"`
	OwnerID        string          `json:"owner_id"`
	ThreadMetadata *ThreadMetadata `json:"thread_metadata,omitempty"`
}

// ThreadMetadata is the thread-only portion of a channel document
type ThreadMetadata struct {
	Archived            bool       `json:"archived"`
	ArchiveTimestamp    time.Time  `json:"archive_timestamp"`
	CreateTimestamp     *time.Time `json:"create_timestamp,omitempty"`
	AutoArchiveDuration int        `json:"auto_archive_duration"`
}

// IsForum reports whether the channel is a forum container
func (c Channel) IsForum() bool { return c.Type == ChannelTypeGuildForum }

// IsPublicThread reports whether the channel is a public thread
func (c Channel) IsPublicThread() bool { return c.Type == ChannelTypePublicThread }

// CreatedAt returns the thread creation time, preferring thread metadata
// and falling back to the snowflake timestamp embedded in the id
func (c Channel) CreatedAt() time.Time {
	if c.ThreadMetadata != nil && c.ThreadMetadata.CreateTimestamp != nil {
		return *c.ThreadMetadata.CreateTimestamp
	}
	return SnowflakeTime(c.ID)
}

// SnowflakeTime extracts the creation time encoded in a Discord snowflake id
// returns the zero time when id is not numeric
func SnowflakeTime(id string) time.Time {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}
	}
	ms := int64(n>>22) + discordEpochMS
	return time.UnixMilli(ms).UTC()
}

// User is a partial Discord user document
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// AvatarURL builds the CDN avatar URL at the requested size,
// falling back to a default avatar when the user has none
func (u User) AvatarURL(size int) string {
	if u.Avatar == "" {
		idx := uint64(0)
		if n, err := strconv.ParseUint(u.ID, 10, 64); err == nil {
			idx = (n >> 22) % 6
		}
		return "https://cdn.discordapp.com/embed/avatars/" + strconv.FormatUint(idx, 10) + ".png"
	}
	return "https://cdn.discordapp.com/avatars/" + u.ID + "/" + u.Avatar + ".png?size=" + strconv.Itoa(size)
}

// Attachment is a partial Discord attachment document
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// MessageReference points at the message a reply references
type MessageReference struct {
	MessageID string `json:"message_id"`
}

// Message is a partial Discord message document with fields we use
type Message struct {
	ID              string            `json:"id"`
	Type            int               `json:"type"`
	ChannelID       string            `json:"channel_id"`
	GuildID         string            `json:"guild_id"`
	Content         string            `json:"content"`
	Author          User              `json:"author"`
	Timestamp       time.Time         `json:"timestamp"`
	EditedTimestamp *time.Time        `json:"edited_timestamp"`
	Attachments     []Attachment      `json:"attachments"`
	Embeds          []json.RawMessage `json:"embeds"`
	Reference       *MessageReference `json:"message_reference,omitempty"`
}

// threadList is the wire shape of active and archived thread listings
type threadList struct {
	Threads []Channel `json:"threads"`
	HasMore bool      `json:"has_more"`
}
