package exports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-export/internal/jobs"
	"resume-export/internal/notify"
	"resume-export/internal/plans"
	"resume-export/internal/quota"
	"resume-export/internal/render"
	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/storage/object"
	"resume-export/internal/shared/telemetry"
	"resume-export/internal/snapshots"
)

const maxErrorLen = 500

// errPermanent marks failures that a retry cannot fix.
var errPermanent = errors.New("permanent export failure")

// Worker renders queued exports and drives records to a terminal state.
type Worker struct {
	Repo      Repo
	Plans     PlanLookup
	Snapshots SnapshotStore
	Quota     *quota.Enforcer
	Renderer  render.Renderer
	Store     object.ObjectStore
	Notifier  notify.Notifier
	Now       func() time.Time
}

var _ jobs.Processor = (*Worker)(nil)

// ProcessExport runs one delivery of an export job. A nil return acks the
// task; a plain error schedules a retry; a jobs.Permanent error archives it.
func (w *Worker) ProcessExport(ctx context.Context, p jobs.Payload, attempt jobs.Attempt) error {
	rec, err := w.Repo.GetByID(ctx, p.ExportID)
	if errors.Is(err, ErrNotFound) {
		telemetry.Warn("export.job.orphan", map[string]any{"export_id": p.ExportID, "task_id": attempt.TaskID, "request_id": p.RequestID})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load export record: %w", err)
	}
	if IsTerminal(rec.Status) {
		telemetry.Info("export.job.already_terminal", map[string]any{
			"export_id": rec.ID,
			"status":    rec.Status,
			"attempt":   attempt.Number(),
		})
		return nil
	}

	err = w.process(ctx, rec, attempt)
	if err == nil {
		return nil
	}

	permanent := errors.Is(err, errPermanent)
	if !permanent && !attempt.Final() {
		telemetry.Warn("export.job.attempt_failed", map[string]any{
			"export_id":  rec.ID,
			"request_id": p.RequestID,
			"attempt":    attempt.Number(),
			"max_retry":  attempt.MaxRetry,
			"error":      err,
		})
		return err
	}

	w.fail(ctx, rec, err, attempt)
	if permanent {
		return jobs.Permanent(err)
	}
	return err
}

func (w *Worker) process(ctx context.Context, rec Record, attempt jobs.Attempt) error {
	plan, err := w.Plans.PlanForUser(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("resolve plan: %w", err)
	}
	snap, err := w.Snapshots.Get(ctx, rec.SnapshotID)
	if errors.Is(err, snapshots.ErrNotFound) {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	data, err := renderSnapshot(ctx, w.Renderer, snap)
	if err != nil {
		return err
	}

	res, err := w.Quota.Reserve(ctx, rec.UserID, plan.PlanID, int64(len(data)))
	if errors.Is(err, quota.ErrQuotaExceeded) || errors.Is(err, quota.ErrPlanLimitsMissing) {
		metrics.IncLimitRejection(rejectionKind(err))
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}

	key := StorageKey(rec.UserID, rec.ID)
	if _, err := w.Store.Upload(ctx, data, key, object.UploadOptions{
		ContentType:        "application/pdf",
		ContentDisposition: contentDisposition(downloadFileName(snap.ResumeID)),
	}); err != nil {
		w.Quota.Rollback(ctx, res)
		return fmt.Errorf("upload artifact: %w", err)
	}

	now := w.now()
	expiresAt := plans.ExpiresAt(plan.PlanCode, now)
	applied, err := w.Repo.MarkReady(ctx, rec.ID, key, expiresAt, now)
	if err != nil {
		w.Quota.Rollback(ctx, res)
		return fmt.Errorf("mark ready: %w", err)
	}
	if !applied {
		// Another delivery finished first; its bytes are already counted.
		w.Quota.Rollback(ctx, res)
		telemetry.Warn("export.job.duplicate", map[string]any{"export_id": rec.ID, "attempt": attempt.Number()})
		return nil
	}

	channel := plans.DeliveryChannel(plan.PlanCode)
	metrics.IncExportCompleted()
	telemetry.Info("export.status", map[string]any{
		"export_id":         rec.ID,
		"user_id":           rec.UserID,
		"status":            StatusReady,
		"status_transition": "PENDING->READY",
		"delivery":          channel,
		"attempt":           attempt.Number(),
		"bytes":             len(data),
		"expires_at":        expiresAt,
	})

	if channel == plans.ChannelEmail && w.Notifier != nil {
		ev := notify.Event{
			Type:       notify.EventExportReady,
			ExportID:   rec.ID,
			UserID:     rec.UserID,
			StorageKey: key,
			ExpiresAt:  expiresAt,
			OccurredAt: now,
			Version:    1,
		}
		if err := w.Notifier.ExportReady(ctx, ev); err != nil {
			telemetry.Error("export.notify_failed", map[string]any{"export_id": rec.ID, "error": err})
		}
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, rec Record, cause error, attempt jobs.Attempt) {
	reason := failureReason(cause)
	applied, err := w.Repo.MarkFailed(ctx, rec.ID, reason, w.now())
	if err != nil {
		telemetry.Error("export.mark_failed_error", map[string]any{"export_id": rec.ID, "error": err})
		return
	}
	if !applied {
		return
	}
	kind := classifyFailure(cause)
	metrics.IncExportFailed(kind)
	telemetry.Error("export.status", map[string]any{
		"export_id":         rec.ID,
		"user_id":           rec.UserID,
		"status":            StatusFailed,
		"status_transition": "PENDING->FAILED",
		"failure":           kind,
		"attempt":           attempt.Number(),
		"error":             sanitizeError(cause),
	})
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func classifyFailure(err error) string {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, quota.ErrPlanLimitsMissing):
		return "plan"
	case errors.Is(err, snapshots.ErrNotFound):
		return "snapshot"
	case errors.Is(err, render.ErrRenderFailure):
		return "render"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// failureReason is the message stored on the record and shown to the user.
func failureReason(err error) string {
	switch classifyFailure(err) {
	case "quota":
		return "Daily export quota exceeded. Try again tomorrow."
	case "plan":
		return "Export limits are not configured for your plan."
	case "snapshot":
		return "The resume snapshot for this export no longer exists."
	case "render":
		return "We could not generate the PDF. Please try again."
	case "timeout":
		return "Export timed out. Please try again."
	default:
		return "Export failed. Please try again."
	}
}

func rejectionKind(err error) string {
	if errors.Is(err, quota.ErrQuotaExceeded) {
		return "quota_exceeded"
	}
	return "plan_misconfigured"
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
