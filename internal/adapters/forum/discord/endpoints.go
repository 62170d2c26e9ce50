package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

// Channel fetches a channel or thread by id
func (c *Client) Channel(ctx context.Context, id string) (Channel, error) {
	var out Channel
	if err := c.getJSON(ctx, fmt.Sprintf("/channels/%s", id), &out); err != nil {
		return Channel{}, err
	}
	return out, nil
}

// ActiveGuildThreads lists every active thread in the guild the bot can see
func (c *Client) ActiveGuildThreads(ctx context.Context, guildID string) ([]Channel, error) {
	var out threadList
	if err := c.getJSON(ctx, fmt.Sprintf("/guilds/%s/threads/active", guildID), &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// ArchivedPublicThreads lists public archived threads of a channel,
// walking has_more pages by archive timestamp
func (c *Client) ArchivedPublicThreads(ctx context.Context, channelID string) ([]Channel, error) {
	var all []Channel
	before := ""
	for {
		path := fmt.Sprintf("/channels/%s/threads/archived/public?limit=100", channelID)
		if before != "" {
			path += "&before=" + url.QueryEscape(before)
		}
		var page threadList
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Threads...)
		if !page.HasMore || len(page.Threads) == 0 {
			return all, nil
		}
		last := page.Threads[len(page.Threads)-1]
		if last.ThreadMetadata == nil {
			return all, nil
		}
		before = last.ThreadMetadata.ArchiveTimestamp.Format("2006-01-02T15:04:05.000Z07:00")
	}
}

// Message fetches one message from a channel
func (c *Client) Message(ctx context.Context, channelID, messageID string) (Message, error) {
	var out Message
	if err := c.getJSON(ctx, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), &out); err != nil {
		return Message{}, err
	}
	return out, nil
}

// Messages fetches up to limit messages in the channel, newest first,
// strictly older than before when before is non empty
func (c *Client) Messages(ctx context.Context, channelID, before string, limit int) ([]Message, error) {
	if limit <= 0 || limit > MessagePageSize {
		limit = MessagePageSize
	}
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}
	var out []Message
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// User fetches a user by id
func (c *Client) User(ctx context.Context, id string) (User, error) {
	var out User
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%s", id), &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("discord close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
