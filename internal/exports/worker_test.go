package exports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"resume-export/internal/jobs"
	"resume-export/internal/notify"
	"resume-export/internal/quota"
	"resume-export/internal/render"
)

// Every attempt fails: the first two are retried and leave the record
// PENDING, the last one writes FAILED, and later deliveries change nothing.
func TestWorkerRetryExhaustionEndsFailed(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "plan_pro", "r1")
	f.renderer.errs = []error{errTransient}
	ctx := context.Background()

	res, err := f.svc.EnqueueExport(ctx, "u1", "r1")
	if err != nil {
		t.Fatalf("EnqueueExport: %v", err)
	}
	p := f.queue.payloads[0]

	for retried := 0; retried < 2; retried++ {
		err := f.worker.ProcessExport(ctx, p, attempt(retried))
		if err == nil || errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("attempt %d: expected retryable error, got %v", retried+1, err)
		}
		rec, _ := f.repo.GetByID(ctx, res.ExportID)
		if rec.Status != StatusPending {
			t.Fatalf("attempt %d: expected PENDING, got %s", retried+1, rec.Status)
		}
	}

	if err := f.worker.ProcessExport(ctx, p, attempt(2)); !errors.Is(err, render.ErrRenderFailure) {
		t.Fatalf("final attempt: expected render failure, got %v", err)
	}
	view, err := f.svc.GetStatus(ctx, "u1", "r1", res.ExportID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if view.Status != StatusFailed || view.Error == nil || *view.Error == "" {
		t.Fatalf("expected FAILED with reason, got %+v", view)
	}

	// A redelivery that would now succeed must not revive the record.
	f.renderer.errs = nil
	if err := f.worker.ProcessExport(ctx, p, attempt(0)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	view, _ = f.svc.GetStatus(ctx, "u1", "r1", res.ExportID)
	if view.Status != StatusFailed {
		t.Fatalf("expected FAILED to stick, got %s", view.Status)
	}
	if f.usedBytes(t, "u1") != 0 {
		t.Fatalf("failed export must not hold quota")
	}
}

func TestWorkerRedeliveryAfterReadyIsNoop(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "plan_pro", "r1")
	ctx := context.Background()

	res, _ := f.svc.EnqueueExport(ctx, "u1", "r1")
	p := f.queue.payloads[0]
	if err := f.worker.ProcessExport(ctx, p, attempt(0)); err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}
	before, _ := f.repo.GetByID(ctx, res.ExportID)
	used := f.usedBytes(t, "u1")
	calls := f.renderer.calls

	f.now = f.now.Add(time.Hour)
	if err := f.worker.ProcessExport(ctx, p, attempt(1)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	after, _ := f.repo.GetByID(ctx, res.ExportID)
	if after.Status != before.Status || *after.StorageKey != *before.StorageKey || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("record changed on redelivery: %+v -> %+v", before, after)
	}
	if f.usedBytes(t, "u1") != used || f.renderer.calls != calls {
		t.Fatalf("redelivery rendered or charged again")
	}
}

type losingRepo struct {
	*MemoryRepo
}

func (r losingRepo) MarkReady(ctx context.Context, id, storageKey string, expiresAt, now time.Time) (bool, error) {
	return false, nil
}

func TestWorkerLostReadyRaceReturnsQuota(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "plan_pro", "r1")
	f.renderer.data = pdfOfSize(mb)
	f.worker.Repo = losingRepo{f.repo}
	ctx := context.Background()

	if _, err := f.svc.EnqueueExport(ctx, "u1", "r1"); err != nil {
		t.Fatalf("EnqueueExport: %v", err)
	}
	if err := f.worker.ProcessExport(ctx, f.queue.payloads[0], attempt(0)); err != nil {
		t.Fatalf("ProcessExport: %v", err)
	}
	if got := f.usedBytes(t, "u1"); got != 0 {
		t.Fatalf("expected reservation rolled back, got %d", got)
	}
}

func TestWorkerQuotaExceededFailsImmediately(t *testing.T) {
	f := newFixture(t)
	f.addUser("u-free", "plan_free", "r1")
	f.renderer.data = pdfOfSize(6 * mb)
	ctx := context.Background()

	res, _ := f.svc.EnqueueExport(ctx, "u-free", "r1")
	err := f.worker.ProcessExport(ctx, f.queue.payloads[0], attempt(0))
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Fatalf("expected permanent quota error, got %v", err)
	}
	rec, _ := f.repo.GetByID(ctx, res.ExportID)
	if rec.Status != StatusFailed || rec.Error == nil {
		t.Fatalf("expected FAILED, got %+v", rec)
	}
	if got := f.usedBytes(t, "u-free"); got != 0 {
		t.Fatalf("overshoot must be rolled back, got %d", got)
	}
}

func TestWorkerMissingSnapshotIsPermanent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.plans.Assign("u1", "plan_pro")
	if err := f.repo.Create(ctx, NewPendingRecord("e1", "u1", "gone", f.now)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := f.worker.ProcessExport(ctx, jobs.Payload{ExportID: "e1", SnapshotID: "gone", UserID: "u1"}, attempt(0))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	rec, _ := f.repo.GetByID(ctx, "e1")
	if rec.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", rec.Status)
	}
}

func TestWorkerUnknownExportIsAcked(t *testing.T) {
	f := newFixture(t)
	err := f.worker.ProcessExport(context.Background(), jobs.Payload{ExportID: "nope", SnapshotID: "s", UserID: "u"}, attempt(0))
	if err != nil {
		t.Fatalf("expected ack, got %v", err)
	}
}

func TestWorkerNotifiesEmailChannel(t *testing.T) {
	f := newFixture(t)
	f.addUser("u-free", "plan_free", "r1")
	f.addUser("u-pro", "plan_pro", "r2")
	ctx := context.Background()

	free, _ := f.svc.EnqueueExport(ctx, "u-free", "r1")
	if _, err := f.svc.EnqueueExport(ctx, "u-pro", "r2"); err != nil {
		t.Fatalf("EnqueueExport: %v", err)
	}
	for _, p := range f.queue.payloads {
		if err := f.worker.ProcessExport(ctx, p, attempt(0)); err != nil {
			t.Fatalf("ProcessExport: %v", err)
		}
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.events))
	}
	ev := f.notifier.events[0]
	if ev.Type != notify.EventExportReady || ev.ExportID != free.ExportID || ev.UserID != "u-free" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.ExpiresAt.Equal(f.now.AddDate(0, 0, 3)) {
		t.Fatalf("expected 3 day retention, got %s", ev.ExpiresAt)
	}
}

func TestFailureReasonIsReadable(t *testing.T) {
	cases := map[error]string{
		quota.ErrQuotaExceeded:                        "Daily export quota exceeded. Try again tomorrow.",
		render.ErrRenderFailure:                       "We could not generate the PDF. Please try again.",
		context.DeadlineExceeded:                      "Export timed out. Please try again.",
		errors.New("pq: relation does not exist\nat"): "Export failed. Please try again.",
	}
	for err, want := range cases {
		if got := failureReason(err); got != want {
			t.Fatalf("failureReason(%v) = %q, want %q", err, got, want)
		}
	}
}
