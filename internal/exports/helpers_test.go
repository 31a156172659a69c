package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"resume-export/internal/counter"
	"resume-export/internal/jobs"
	"resume-export/internal/notify"
	"resume-export/internal/plans"
	"resume-export/internal/quota"
	"resume-export/internal/render"
	localstore "resume-export/internal/shared/storage/object/local"
	"resume-export/internal/snapshots"
)

const mb = 1024 * 1024

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeRenderer struct {
	mu    sync.Mutex
	data  []byte
	errs  []error
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, in render.Input) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		if len(f.errs) > 1 {
			f.errs = f.errs[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return f.data, nil
}

type fakeQueue struct {
	payloads []jobs.Payload
	err      error
}

func (f *fakeQueue) EnqueueExport(ctx context.Context, p jobs.Payload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, p)
	return "task-" + p.ExportID, nil
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) ExportReady(ctx context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	now      time.Time
	counter  *counter.MemoryStore
	plans    *plans.MemoryRepo
	resumes  *snapshots.MemoryResumes
	repo     *MemoryRepo
	store    *localstore.Store
	renderer *fakeRenderer
	queue    *fakeQueue
	notifier *recordingNotifier
	enforcer *quota.Enforcer
	svc      *Service
	worker   *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:      testNow,
		plans:    plans.NewMemoryRepo(),
		resumes:  snapshots.NewMemoryResumes(),
		repo:     NewMemoryRepo(),
		store:    localstore.New(t.TempDir(), "http://files.test"),
		renderer: &fakeRenderer{data: []byte("%PDF-1.4 fake")},
		queue:    &fakeQueue{},
		notifier: &recordingNotifier{},
	}
	clock := func() time.Time { return f.now }
	f.counter = counter.NewMemoryStore(clock)

	f.plans.PutPlan(plans.Plan{PlanID: "plan_free", PlanCode: plans.CodeFree}, &plans.Limits{MaxExports: 2, DailyUploadMB: 5})
	f.plans.PutPlan(plans.Plan{PlanID: "plan_pro", PlanCode: plans.CodePro}, &plans.Limits{MaxExports: 100, DailyUploadMB: 100})

	var seq int
	snapSvc := &snapshots.Service{
		Resumes: f.resumes,
		Repo:    snapshots.NewMemoryRepo(),
		Now:     clock,
		NewID: func() string {
			seq++
			return fmt.Sprintf("snap-%d", seq)
		},
	}
	f.enforcer = &quota.Enforcer{Counter: f.counter, Limits: f.plans, Exports: f.repo, Now: clock}

	var exportSeq int
	f.svc = &Service{
		Repo:        f.repo,
		Plans:       f.plans,
		Snapshots:   snapSvc,
		Quota:       f.enforcer,
		RateLimiter: quota.NewRateLimiter(f.counter),
		Limits:      RateLimits{Enqueue: 10, Download: 5, Status: 120, Window: time.Minute},
		Queue:       f.queue,
		Renderer:    f.renderer,
		Store:       f.store,
		LinkTTL:     15 * time.Minute,
		Now:         clock,
		NewID: func() string {
			exportSeq++
			return fmt.Sprintf("exp-%d", exportSeq)
		},
	}
	f.worker = &Worker{
		Repo:      f.repo,
		Plans:     f.plans,
		Snapshots: snapSvc,
		Quota:     f.enforcer,
		Renderer:  f.renderer,
		Store:     f.store,
		Notifier:  f.notifier,
		Now:       clock,
	}
	return f
}

// addUser assigns userID to planID and gives them one resume.
func (f *fixture) addUser(userID, planID, resumeID string) {
	f.plans.Assign(userID, planID)
	f.resumes.Put(snapshots.Resume{
		ID:        resumeID,
		UserID:    userID,
		Content:   json.RawMessage(`{"name":"Test User"}`),
		UpdatedAt: f.now,
	})
}

func (f *fixture) usedBytes(t *testing.T, userID string) int64 {
	t.Helper()
	n, err := f.counter.Get(context.Background(), quota.UploadQuotaKey(userID, f.now))
	if err != nil {
		t.Fatalf("counter get: %v", err)
	}
	return n
}

func pdfOfSize(n int) []byte {
	return bytes.Repeat([]byte{'x'}, n)
}

func attempt(retried int) jobs.Attempt {
	return jobs.Attempt{TaskID: "t", Retried: retried, MaxRetry: 2}
}

var errTransient = errors.New("renderer timeout")
