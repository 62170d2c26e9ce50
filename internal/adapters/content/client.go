// Package content provides the destination content service client
//
// Each guild maps to one project on the content service. Clients are
// handed out by the Registry, one per guild, and every write call can
// come back with a quota shaped refusal (429 or 402) which is mapped
// to a coded error and never retried here.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/logger"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUA        = "threadmirror-backfill"
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
)

// Options configures a Client
type Options struct {
	BaseURL   string
	ProjectID string
	APIKey    string
	UserAgent string
	Timeout   time.Duration

	// Retry config for transport and transient server errors only.
	// Rate limit and quota responses are never retried here
	MaxRetries int
	RetryBase  time.Duration
}

// Client talks to one project on the content service
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("content"),
		sleep: time.Sleep,
	}
}

// ProjectID reports which project the client writes to
func (c *Client) ProjectID() string { return c.opts.ProjectID }

// do issues a request with auth headers and maps refusals to coded errors
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	url := c.opts.BaseURL + path
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var body io.Reader
		if in != nil {
			raw, err := json.Marshal(in)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeJSON, "content marshal body")
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "content new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.opts.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempts >= c.opts.MaxRetries {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "content do failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("content transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			defer func() {
				if cerr := resp.Body.Close(); cerr != nil {
					c.log.Error().Err(cerr).Str("path", path).Msg("content close body failed")
				}
			}()
			if out == nil {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
				return nil
			}
			b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return err
			}
			return json.Unmarshal(b, out)

		case resp.StatusCode == http.StatusTooManyRequests:
			msg := readMessage(resp.Body)
			_ = resp.Body.Close()
			return perr.TooManyRequestsf("content rate limited: %s", msg)

		case resp.StatusCode == http.StatusPaymentRequired:
			msg := readMessage(resp.Body)
			_ = resp.Body.Close()
			return perr.QuotaExceededf("content quota exceeded: %s", msg)

		case resp.StatusCode == http.StatusNotFound:
			_ = resp.Body.Close()
			return perr.NotFoundf("content resource %s not found", path)

		case resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusGatewayTimeout:
			_ = resp.Body.Close()
			if attempts >= c.opts.MaxRetries {
				return perr.Unavailablef("content transient server error")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("content transient error retrying")
			c.sleep(back)
			attempts++
			continue

		default:
			msg := readMessage(resp.Body)
			_ = resp.Body.Close()
			return perr.Newf(perr.ErrorCodeUnknown, "content unexpected status %d: %s", resp.StatusCode, msg)
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	ms := int64(c.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	max := int64(10 * time.Second / time.Millisecond)
	if ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

// readMessage extracts an error message from a small JSON or text body
func readMessage(rc io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(rc, 2048))
	var wire struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &wire); err == nil {
		if wire.Error != "" {
			return wire.Error
		}
		if wire.Message != "" {
			return wire.Message
		}
	}
	return string(b)
}
