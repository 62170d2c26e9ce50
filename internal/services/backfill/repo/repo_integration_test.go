//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"threadmirror/internal/migrations"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/migrate"
	"threadmirror/internal/platform/store"
	"threadmirror/internal/services/backfill/domain"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func openRepo(t *testing.T) (domain.CheckpointRepo, context.Context) {
	t.Helper()

	dsn, stop := startPostgres(t)
	t.Cleanup(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	st, err := store.Open(ctx, store.Config{
		AppName: "threadmirror-repo-integration",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	})
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	if err := migrate.Run(ctx, st.PG, migrations.Files); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPG().Bind(st.PG), ctx
}

func TestGetOrCreateJobConverges(t *testing.T) {
	r, ctx := openRepo(t)

	cutoff := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := r.GetOrCreateJob(ctx, "g1", "f1", &cutoff)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if a.Status != domain.JobRunning {
		t.Fatalf("status = %q, want running", a.Status)
	}
	if !a.CutoffTimestamp.Equal(cutoff) {
		t.Fatalf("cutoff = %v, want %v", a.CutoffTimestamp, cutoff)
	}

	// resubmitting the pair converges on the same row and keeps the cutoff
	b, err := r.GetOrCreateJob(ctx, "g1", "f1", nil)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if b.ID != a.ID {
		t.Fatalf("ids diverged: %d vs %d", a.ID, b.ID)
	}
	if !b.CutoffTimestamp.Equal(cutoff) {
		t.Fatalf("cutoff changed to %v", b.CutoffTimestamp)
	}

	c, err := r.GetOrCreateJob(ctx, "g1", "f2", nil)
	if err != nil {
		t.Fatalf("other channel upsert: %v", err)
	}
	if c.ID == a.ID {
		t.Fatal("different channel must get its own row")
	}
	if c.CutoffTimestamp.IsZero() {
		t.Fatal("nil cutoff must default to creation time")
	}
}

func TestSetJobStatusTerminalIsSticky(t *testing.T) {
	r, ctx := openRepo(t)

	job, err := r.GetOrCreateJob(ctx, "g1", "f1", nil)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := r.SetJobStatus(ctx, job.ID, domain.JobCompleted, "t9")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != domain.JobCompleted {
		t.Fatalf("status = %q, want completed", got)
	}

	// a later transition attempt reports the persisted terminal status
	got, err = r.SetJobStatus(ctx, job.ID, domain.JobRunning, "")
	if err != nil {
		t.Fatalf("rerun attempt: %v", err)
	}
	if got != domain.JobCompleted {
		t.Fatalf("terminal status overwritten: %q", got)
	}

	fresh, err := r.GetOrCreateJob(ctx, "g1", "f1", nil)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if fresh.Status != domain.JobCompleted {
		t.Fatalf("persisted status = %q, want completed", fresh.Status)
	}
	if fresh.LastProcessedThreadID != "t9" {
		t.Fatalf("last thread = %q, want t9", fresh.LastProcessedThreadID)
	}
}

func TestPausedJobResumesToRunning(t *testing.T) {
	r, ctx := openRepo(t)

	job, _ := r.GetOrCreateJob(ctx, "g1", "f1", nil)
	if _, err := r.SetJobStatus(ctx, job.ID, domain.JobPausedQuota, "t3"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	got, err := r.SetJobStatus(ctx, job.ID, domain.JobRunning, "")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got != domain.JobRunning {
		t.Fatalf("status = %q, want running", got)
	}
}

func TestCheckpointUpsertAndTransitions(t *testing.T) {
	r, ctx := openRepo(t)

	job, _ := r.GetOrCreateJob(ctx, "g1", "f1", nil)

	cp, err := r.GetOrCreateCheckpoint(ctx, job.ID, "t1")
	if err != nil {
		t.Fatalf("create checkpoint: %v", err)
	}
	if cp.Status != domain.CheckpointPending {
		t.Fatalf("status = %q, want pending", cp.Status)
	}

	again, err := r.GetOrCreateCheckpoint(ctx, job.ID, "t1")
	if err != nil {
		t.Fatalf("upsert checkpoint: %v", err)
	}
	if again.ID != cp.ID {
		t.Fatalf("ids diverged: %d vs %d", cp.ID, again.ID)
	}

	inProgress := domain.CheckpointInProgress
	last := "m42"
	oldest := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	err = r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{
		Status:                   &inProgress,
		LastProcessedMessageID:   &last,
		OldestProcessedTimestamp: &oldest,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	got, _ := r.GetOrCreateCheckpoint(ctx, job.ID, "t1")
	if got.Status != domain.CheckpointInProgress {
		t.Fatalf("status = %q, want in_progress", got.Status)
	}
	if got.LastProcessedMessageID != "m42" {
		t.Fatalf("cursor = %q, want m42", got.LastProcessedMessageID)
	}
	if got.OldestProcessedTimestamp == nil || !got.OldestProcessedTimestamp.Equal(oldest) {
		t.Fatalf("oldest = %v, want %v", got.OldestProcessedTimestamp, oldest)
	}

	completed := domain.CheckpointCompleted
	if err := r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{Status: &completed}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// completed never leaves
	err = r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{Status: &inProgress})
	if perr.CodeOf(err) != perr.ErrorCodeConflict {
		t.Fatalf("illegal transition error = %v, want conflict", err)
	}

	// cursor only patches still land on a completed row
	last2 := "m50"
	if err := r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{LastProcessedMessageID: &last2}); err != nil {
		t.Fatalf("cursor patch: %v", err)
	}
}

func TestFailedCheckpointRetriesThroughPending(t *testing.T) {
	r, ctx := openRepo(t)

	job, _ := r.GetOrCreateJob(ctx, "g1", "f1", nil)
	cp, _ := r.GetOrCreateCheckpoint(ctx, job.ID, "t1")

	failed := domain.CheckpointFailed
	if err := r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{Status: &failed}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	inProgress := domain.CheckpointInProgress
	err := r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{Status: &inProgress})
	if perr.CodeOf(err) != perr.ErrorCodeConflict {
		t.Fatalf("failed -> in_progress error = %v, want conflict", err)
	}

	pending := domain.CheckpointPending
	if err := r.UpdateCheckpoint(ctx, cp.ID, domain.CheckpointPatch{Status: &pending}); err != nil {
		t.Fatalf("retry through pending: %v", err)
	}
}

func TestListUnprocessedThreadsKeepsCreationOrder(t *testing.T) {
	r, ctx := openRepo(t)

	job, _ := r.GetOrCreateJob(ctx, "g1", "f1", nil)
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := r.GetOrCreateCheckpoint(ctx, job.ID, id); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	cp2, _ := r.GetOrCreateCheckpoint(ctx, job.ID, "t2")
	inProgress := domain.CheckpointInProgress
	completed := domain.CheckpointCompleted
	if err := r.UpdateCheckpoint(ctx, cp2.ID, domain.CheckpointPatch{Status: &inProgress}); err != nil {
		t.Fatalf("start t2: %v", err)
	}
	if err := r.UpdateCheckpoint(ctx, cp2.ID, domain.CheckpointPatch{Status: &completed}); err != nil {
		t.Fatalf("complete t2: %v", err)
	}

	ids, err := r.ListUnprocessedThreads(ctx, job.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "t1" || ids[1] != "t3" {
		t.Fatalf("unprocessed = %v, want [t1 t3]", ids)
	}

	p, err := r.GetProgress(ctx, job.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Total != 3 || p.Completed != 1 || p.Failed != 0 || p.InProgress != 0 {
		t.Fatalf("progress = %+v", p)
	}
}
