package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"threadmirror/internal/modkit/repokit"
	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/testkit"
	bfdomain "threadmirror/internal/services/backfill/domain"
	"threadmirror/internal/services/queue/domain"
)

type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	panic("unexpected Exec")
}
func (fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error) {
	panic("unexpected Query")
}
func (fakeDB) QueryRow(context.Context, string, ...any) repokit.Row { panic("unexpected QueryRow") }
func (fakeDB) Tx(context.Context, func(q repokit.RowQuerier) error) error {
	panic("unexpected Tx")
}

// memQueue is an in memory domain.Repo mirroring the postgres semantics
type memQueue struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.QueueJob

	progress []int
	bound    []int64
	resuming bool
}

func newMemQueue() *memQueue {
	return &memQueue{jobs: map[uuid.UUID]*domain.QueueJob{}}
}

func (m *memQueue) Enqueue(_ context.Context, guildID, forumChannelID string) (domain.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.GuildID == guildID && j.ForumChannelID == forumChannelID && !j.State.Terminal() {
			return *j, nil
		}
	}
	j := &domain.QueueJob{
		ID:             uuid.New(),
		GuildID:        guildID,
		ForumChannelID: forumChannelID,
		State:          domain.StateQueued,
		CreatedAt:      time.Now(),
	}
	m.jobs[j.ID] = j
	return *j, nil
}

func (m *memQueue) Get(_ context.Context, id uuid.UUID) (domain.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.QueueJob{}, perr.NotFoundf("queue job %s not found", id)
	}
	return *j, nil
}

func (m *memQueue) ClaimNext(_ context.Context) (domain.QueueJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.QueueJob
	for _, j := range m.jobs {
		if j.State != domain.StateQueued {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return domain.QueueJob{}, false, nil
	}
	oldest.State = domain.StateActive
	oldest.Attempts++
	oldest.UpdatedAt = time.Now()
	return *oldest, true, nil
}

func (m *memQueue) ReclaimStale(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cut := time.Now().Add(-olderThan)
	n := 0
	for _, j := range m.jobs {
		if j.State == domain.StateActive && j.UpdatedAt.Before(cut) {
			j.State = domain.StateQueued
			j.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *memQueue) SetProgress(_ context.Context, id uuid.UUID, pct int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Progress = pct
		j.UpdatedAt = time.Now()
	}
	m.progress = append(m.progress, pct)
	return nil
}

func (m *memQueue) backdate(id uuid.UUID, age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.UpdatedAt = time.Now().Add(-age)
	}
}

func (m *memQueue) BindBackfillJob(_ context.Context, id uuid.UUID, backfillJobID int64, resuming bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.BackfillJobID = &backfillJobID
		j.Resuming = resuming
	}
	m.bound = append(m.bound, backfillJobID)
	m.resuming = resuming
	return nil
}

func (m *memQueue) Finish(_ context.Context, id uuid.UUID, state domain.JobState, pct int, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.State = state
		j.Progress = pct
		j.Error = errText
	}
	return nil
}

type fakeRunner struct {
	res   bfdomain.RunResult
	err   error
	pcts  []int
	calls int
}

func (f *fakeRunner) Run(_ context.Context, _, _ string, report bfdomain.ProgressFunc) (bfdomain.RunResult, error) {
	f.calls++
	for _, p := range f.pcts {
		report(p)
	}
	return f.res, f.err
}

func newTestSvc(repo *memQueue, runner *fakeRunner) *Svc {
	return New(
		fakeDB{},
		repokit.BindFunc[domain.Repo](func(repokit.Queryer) domain.Repo { return repo }),
		runner,
		Config{PollInterval: time.Millisecond, StaleAfter: 50 * time.Millisecond},
	)
}

func TestSubmitReusesLivePair(t *testing.T) {
	repo := newMemQueue()
	svc := newTestSvc(repo, &fakeRunner{})
	ctx := context.Background()

	a, err := svc.Submit(ctx, "g1", "f1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	b, err := svc.Submit(ctx, "g1", "f1")
	if err != nil {
		t.Fatalf("Submit again: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("live pair resubmit created a second job: %s vs %s", a.ID, b.ID)
	}

	c, err := svc.Submit(ctx, "g1", "f2")
	if err != nil {
		t.Fatalf("Submit other channel: %v", err)
	}
	if c.ID == a.ID {
		t.Fatal("different channel must get its own job")
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	svc := newTestSvc(newMemQueue(), &fakeRunner{})
	_, err := svc.Get(context.Background(), uuid.New())
	if perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("code = %v, want not found", perr.CodeOf(err))
	}
}

func TestProcessCompletesAndBindsJob(t *testing.T) {
	repo := newMemQueue()
	runner := &fakeRunner{
		res:  bfdomain.RunResult{JobID: 7, Status: bfdomain.JobCompleted, Resumed: true},
		pcts: []int{50, 100},
	}
	svc := newTestSvc(repo, runner)
	ctx := context.Background()

	job, err := svc.Submit(ctx, "g1", "f1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	claimed, ok, err := repo.ClaimNext(ctx)
	if err != nil || !ok {
		t.Fatalf("ClaimNext: ok=%v err=%v", ok, err)
	}
	svc.process(ctx, claimed)

	got, _ := repo.Get(ctx, job.ID)
	if got.State != domain.StateCompleted {
		t.Fatalf("state = %q, want completed", got.State)
	}
	if got.Progress != 100 {
		t.Fatalf("progress = %d, want 100", got.Progress)
	}
	if got.Error != "" {
		t.Fatalf("error = %q, want empty", got.Error)
	}
	if got.BackfillJobID == nil || *got.BackfillJobID != 7 {
		t.Fatalf("backfill job id = %v, want 7", got.BackfillJobID)
	}
	if !got.Resuming {
		t.Fatal("resuming flag not recorded")
	}
	if len(repo.progress) != 2 || repo.progress[0] != 50 {
		t.Fatalf("progress writes = %v, want [50 100]", repo.progress)
	}
}

func TestProcessRunnerErrorFailsSubmission(t *testing.T) {
	repo := newMemQueue()
	runner := &fakeRunner{err: perr.Unavailablef("forum listing failed")}
	svc := newTestSvc(repo, runner)
	ctx := context.Background()

	job, _ := svc.Submit(ctx, "g1", "f1")
	claimed, _, _ := repo.ClaimNext(ctx)
	svc.process(ctx, claimed)

	got, _ := repo.Get(ctx, job.ID)
	if got.State != domain.StateFailed {
		t.Fatalf("state = %q, want failed", got.State)
	}
	if !strings.Contains(got.Error, "forum listing failed") {
		t.Fatalf("error = %q, want runner message", got.Error)
	}
	if len(repo.bound) != 0 {
		t.Fatalf("bound = %v, want none without a job id", repo.bound)
	}
}

func TestProcessQuotaPauseSurfacesAsFailedWithHint(t *testing.T) {
	repo := newMemQueue()
	runner := &fakeRunner{
		res: bfdomain.RunResult{JobID: 3, Status: bfdomain.JobPausedQuota},
	}
	svc := newTestSvc(repo, runner)
	ctx := context.Background()

	job, _ := svc.Submit(ctx, "g1", "f1")
	claimed, _, _ := repo.ClaimNext(ctx)
	svc.process(ctx, claimed)

	got, _ := repo.Get(ctx, job.ID)
	if got.State != domain.StateFailed {
		t.Fatalf("state = %q, want failed", got.State)
	}
	if !strings.Contains(got.Error, "resubmit") {
		t.Fatalf("error = %q, want resubmit hint", got.Error)
	}
	if got.BackfillJobID == nil || *got.BackfillJobID != 3 {
		t.Fatalf("paused job must still bind its backfill id, got %v", got.BackfillJobID)
	}
}

func TestRunDrainsQueueUntilCancelled(t *testing.T) {
	repo := newMemQueue()
	runner := &fakeRunner{res: bfdomain.RunResult{JobID: 1, Status: bfdomain.JobCompleted}}
	svc := newTestSvc(repo, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := svc.Submit(ctx, "g1", "f1")
	b, _ := svc.Submit(ctx, "g1", "f2")

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		ja, _ := repo.Get(ctx, a.ID)
		jb, _ := repo.Get(ctx, b.ID)
		if ja.State == domain.StateCompleted && jb.State == domain.StateCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not drain queue: %q %q", ja.State, jb.State)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if runner.calls != 2 {
		t.Fatalf("runner calls = %d, want 2", runner.calls)
	}
}

func TestProcessShutdownLeavesSubmissionActive(t *testing.T) {
	repo := newMemQueue()
	runner := &fakeRunner{err: context.Canceled}
	svc := newTestSvc(repo, runner)

	job, _ := svc.Submit(context.Background(), "g1", "f1")
	claimed, _, _ := repo.ClaimNext(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.process(ctx, claimed)

	got, _ := repo.Get(context.Background(), job.ID)
	if got.State != domain.StateActive {
		t.Fatalf("state = %q, want active for later reclaim", got.State)
	}
	if got.Error != "" {
		t.Fatalf("error = %q, want none recorded on shutdown", got.Error)
	}
}

func TestRunReclaimsOrphanedSubmissions(t *testing.T) {
	repo := newMemQueue()
	runner := &fakeRunner{res: bfdomain.RunResult{JobID: 1, Status: bfdomain.JobCompleted}}
	svc := newTestSvc(repo, runner)

	job, _ := svc.Submit(context.Background(), "g1", "f1")
	// simulate a worker that claimed the submission and then died
	if _, ok, _ := repo.ClaimNext(context.Background()); !ok {
		t.Fatal("seed claim failed")
	}
	repo.backdate(job.ID, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		got, _ := repo.Get(ctx, job.ID)
		if got.State == domain.StateCompleted {
			if got.Attempts != 2 {
				t.Fatalf("attempts = %d, want 2 after reclaim", got.Attempts)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("orphaned submission never reclaimed, state %q", got.State)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
	if runner.calls != 1 {
		t.Fatalf("runner calls = %d, want 1", runner.calls)
	}
}

func TestNewSubmitServesWithoutWorker(t *testing.T) {
	repo := newMemQueue()
	binder := repokit.BindFunc[domain.Repo](func(repokit.Queryer) domain.Repo { return repo })
	svc := NewSubmit(fakeDB{}, binder)

	job, err := svc.Submit(context.Background(), "g1", "f1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, err := svc.Get(context.Background(), job.ID); err != nil || got.ID != job.ID {
		t.Fatalf("Get: %v %v", got.ID, err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("Run without a runner must refuse")
	}

	testkit.MustPanic(t, func() { NewSubmit(nil, binder) })
	testkit.MustPanic(t, func() { NewSubmit(fakeDB{}, nil) })
}

func TestNewRequiresDependencies(t *testing.T) {
	binder := repokit.BindFunc[domain.Repo](func(repokit.Queryer) domain.Repo { return newMemQueue() })
	runner := &fakeRunner{}

	testkit.MustPanic(t, func() { New(nil, binder, runner, Config{}) })
	testkit.MustPanic(t, func() { New(fakeDB{}, nil, runner, Config{}) })
	testkit.MustPanic(t, func() { New(fakeDB{}, binder, nil, Config{}) })
	testkit.MustNotPanic(t, func() { New(fakeDB{}, binder, runner, Config{}) })
}
