package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perr "threadmirror/internal/platform/errors"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, BotToken: "tok", MaxRetries: 2, RetryBase: time.Millisecond})
	c.sleep = func(time.Duration) {}
	return c
}

func TestDoSendsAuthHeaders(t *testing.T) {
	t.Parallel()
	var gotAuth, gotUA string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))

	if _, err := c.Channel(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bot tok" {
		t.Fatalf("expected bot auth header, got %q", gotAuth)
	}
	if gotUA == "" {
		t.Fatal("expected a user agent")
	}
}

func TestDoNotFound(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Message(context.Background(), "c1", "m1")
	if perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDoRetriesRateLimitWithRetryAfter(t *testing.T) {
	t.Parallel()
	var calls int32
	var slept []time.Duration
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1.5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	if _, err := c.Channel(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected a retry after 429, got %d calls", calls)
	}
	if len(slept) != 1 || slept[0] != 1500*time.Millisecond {
		t.Fatalf("expected a 1.5s Retry-After sleep, got %v", slept)
	}
}

func TestDoRateLimitExhausted(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.User(context.Background(), "u1")
	if perr.CodeOf(err) != perr.ErrorCodeTooManyRequests {
		t.Fatalf("expected too many requests, got %v", err)
	}
}

func TestDoRetriesTransientServerErrors(t *testing.T) {
	t.Parallel()
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))

	if _, err := c.Channel(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestMessagesBuildsBeforeQuery(t *testing.T) {
	t.Parallel()
	var gotQuery string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := c.Messages(context.Background(), "c1", "123", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "limit=100&before=123" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestArchivedPublicThreadsWalksPages(t *testing.T) {
	t.Parallel()
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			if r.URL.Query().Get("before") != "" {
				t.Errorf("first page must not carry before, got %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"threads":[{"id":"t1","thread_metadata":{"archived":true,"archive_timestamp":"2024-03-01T12:00:00.000+00:00"}}],"has_more":true}`))
			return
		}
		if r.URL.Query().Get("before") == "" {
			t.Error("second page must page by archive timestamp")
		}
		_, _ = w.Write([]byte(`{"threads":[{"id":"t2"}],"has_more":false}`))
	}))

	threads, err := c.ArchivedPublicThreads(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(threads) != 2 || threads[0].ID != "t1" || threads[1].ID != "t2" {
		t.Fatalf("unexpected threads %+v", threads)
	}
}

func TestSnowflakeCreatedAt(t *testing.T) {
	t.Parallel()
	// snowflake 175928847299117063 -> 2016-04-30 11:18:25.796 UTC
	ch := Channel{ID: "175928847299117063"}
	got := ch.CreatedAt().UTC()
	want := time.Date(2016, 4, 30, 11, 18, 25, int(796*time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Fatalf("CreatedAt() = %v, want %v", got, want)
	}
}

func TestAvatarURLFallsBackToDefault(t *testing.T) {
	t.Parallel()
	u := User{ID: "80351110224678912", Avatar: "8342729096ea3675442027381ff50dfe"}
	if got := u.AvatarURL(128); got != "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png?size=128" {
		t.Fatalf("unexpected avatar url %q", got)
	}

	bare := User{ID: "80351110224678912"}
	got := bare.AvatarURL(128)
	if got == "" {
		t.Fatal("expected a default avatar url")
	}
	if got == u.AvatarURL(128) {
		t.Fatal("default avatar must differ from the custom one")
	}
}
