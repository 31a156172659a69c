package exports

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"

	"resume-export/internal/jobs"
	"resume-export/internal/plans"
	"resume-export/internal/quota"
	"resume-export/internal/render"
	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/server/middleware"
	"resume-export/internal/shared/storage/object"
	"resume-export/internal/shared/telemetry"
	"resume-export/internal/snapshots"
)

const defaultLinkTTL = 15 * time.Minute

// PlanLookup resolves the caller's plan.
type PlanLookup interface {
	PlanForUser(ctx context.Context, userID string) (plans.Plan, error)
}

// SnapshotStore captures and reads snapshots.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, userID, resumeID string) (*snapshots.Snapshot, error)
	Get(ctx context.Context, snapshotID string) (snapshots.Snapshot, error)
}

// RateLimits are the per-user, per-window call ceilings. Zero disables a limit.
type RateLimits struct {
	Enqueue  int64
	Download int64
	Status   int64
	Window   time.Duration
}

// Service handles the request side of exports.
type Service struct {
	Repo        Repo
	Plans       PlanLookup
	Snapshots   SnapshotStore
	Quota       *quota.Enforcer
	RateLimiter *quota.RateLimiter
	Limits      RateLimits
	Queue       jobs.Enqueuer
	Renderer    render.Renderer
	Store       object.ObjectStore
	LinkTTL     time.Duration
	// ArtifactBaseURL, when set, makes download links point at the API's
	// artifact route instead of the object store.
	ArtifactBaseURL string
	Now             func() time.Time
	NewID           func() string
}

// EnqueueExport snapshots the resume, records a PENDING export and queues the
// render. The worker alone writes the terminal state.
func (s *Service) EnqueueExport(ctx context.Context, userID, resumeID string) (EnqueueResult, error) {
	if err := s.allow(ctx, quota.ActionExportEnqueue, userID, s.Limits.Enqueue); err != nil {
		return EnqueueResult{}, err
	}
	plan, err := s.Plans.PlanForUser(ctx, userID)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("resolve plan: %w", err)
	}
	if err := s.Quota.AssertWithinExportLimit(ctx, userID, plan.PlanID); err != nil {
		s.countRejection(err)
		return EnqueueResult{}, err
	}
	if _, err := s.Quota.Check(ctx, userID, plan.PlanID); err != nil {
		s.countRejection(err)
		return EnqueueResult{}, err
	}

	snap, err := s.Snapshots.CreateSnapshot(ctx, userID, resumeID)
	if err != nil {
		return EnqueueResult{}, err
	}
	if snap == nil {
		return EnqueueResult{}, ErrNotFound
	}

	rec := NewPendingRecord(s.newID(), userID, snap.ID, s.now())
	if err := s.Repo.Create(ctx, rec); err != nil {
		return EnqueueResult{}, fmt.Errorf("create export record: %w", err)
	}

	if err := s.enqueue(ctx, rec); err != nil {
		// The record would otherwise sit in PENDING with no job to finish it.
		if _, ferr := s.Repo.MarkFailed(ctx, rec.ID, "Export could not be queued. Please try again.", s.now()); ferr != nil {
			telemetry.Error("export.mark_failed_error", map[string]any{"export_id": rec.ID, "error": ferr})
		}
		metrics.IncExportFailed("queue")
		return EnqueueResult{}, err
	}

	channel := plans.DeliveryChannel(plan.PlanCode)
	metrics.IncExportEnqueued()
	telemetry.Info("export.status", map[string]any{
		"export_id":         rec.ID,
		"user_id":           userID,
		"resume_id":         resumeID,
		"snapshot_id":       snap.ID,
		"status":            StatusPending,
		"status_transition": "->PENDING",
		"delivery":          channel,
	})
	return EnqueueResult{ExportID: rec.ID, Delivery: string(channel)}, nil
}

func (s *Service) enqueue(ctx context.Context, rec Record) error {
	if s.Queue == nil {
		return ErrQueueUnavailable
	}
	taskID, err := s.Queue.EnqueueExport(ctx, jobs.Payload{
		ExportID:   rec.ID,
		SnapshotID: rec.SnapshotID,
		UserID:     rec.UserID,
		RequestID:  middleware.RequestIDFrom(ctx),
	})
	if err != nil {
		telemetry.Error("export.enqueue_failed", map[string]any{"export_id": rec.ID, "request_id": middleware.RequestIDFrom(ctx), "error": err})
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	telemetry.Info("export.enqueued", map[string]any{"export_id": rec.ID, "task_id": taskID, "request_id": middleware.RequestIDFrom(ctx)})
	return nil
}

// GetStatus returns the record for exportID if it belongs to userID and was
// taken from resumeID. The download URL is only filled for READY records on
// a download-channel plan.
func (s *Service) GetStatus(ctx context.Context, userID, resumeID, exportID string) (StatusView, error) {
	if err := s.allow(ctx, quota.ActionExportStatus, userID, s.Limits.Status); err != nil {
		return StatusView{}, err
	}
	rec, err := s.ownedRecord(ctx, userID, resumeID, exportID)
	if err != nil {
		return StatusView{}, err
	}

	view := StatusView{
		ID:        rec.ID,
		Status:    rec.Status,
		Error:     rec.Error,
		ExpiresAt: rec.ExpiresAt,
	}
	ttl, ok, err := s.deliverable(ctx, rec)
	if err != nil || !ok {
		return view, err
	}

	var u string
	if s.ArtifactBaseURL != "" {
		u = ArtifactURL(s.ArtifactBaseURL, resumeID, rec.ID)
	} else {
		u, err = s.Store.SignedDownloadURL(ctx, *rec.StorageKey, ttl)
		if err != nil {
			return StatusView{}, fmt.Errorf("sign download url: %w", err)
		}
	}
	view.DownloadURL = &u
	return view, nil
}

// OpenArtifact streams the stored PDF of a READY export through the API. It
// applies the same ownership, plan and expiry rules as the download URL in
// GetStatus; anything not downloadable is ErrNotFound.
func (s *Service) OpenArtifact(ctx context.Context, userID, resumeID, exportID string) (Artifact, error) {
	if err := s.allow(ctx, quota.ActionExportStatus, userID, s.Limits.Status); err != nil {
		return Artifact{}, err
	}
	rec, err := s.ownedRecord(ctx, userID, resumeID, exportID)
	if err != nil {
		return Artifact{}, err
	}
	_, ok, err := s.deliverable(ctx, rec)
	if err != nil {
		return Artifact{}, err
	}
	if !ok {
		return Artifact{}, ErrNotFound
	}
	body, err := s.Store.Open(ctx, *rec.StorageKey)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	return Artifact{FileName: downloadFileName(resumeID), Body: body}, nil
}

// ownedRecord loads exportID and hides it unless it belongs to userID and
// was taken from resumeID.
func (s *Service) ownedRecord(ctx context.Context, userID, resumeID, exportID string) (Record, error) {
	rec, err := s.Repo.GetByID(ctx, exportID)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != userID {
		return Record{}, ErrNotFound
	}
	snap, err := s.Snapshots.Get(ctx, rec.SnapshotID)
	if err != nil {
		if errors.Is(err, snapshots.ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	if snap.ResumeID != resumeID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// deliverable reports whether rec may be handed out as a download right now
// and for how long.
func (s *Service) deliverable(ctx context.Context, rec Record) (time.Duration, bool, error) {
	if rec.Status != StatusReady || rec.StorageKey == nil {
		return 0, false, nil
	}
	plan, err := s.Plans.PlanForUser(ctx, rec.UserID)
	if err != nil {
		return 0, false, fmt.Errorf("resolve plan: %w", err)
	}
	if plans.DeliveryChannel(plan.PlanCode) != plans.ChannelDownload {
		return 0, false, nil
	}
	ttl, ok := s.linkTTL(rec.ExpiresAt)
	return ttl, ok, nil
}

// DirectDownload renders the resume synchronously. It bypasses the queue and
// the record lifecycle but still snapshots and charges the byte quota.
func (s *Service) DirectDownload(ctx context.Context, userID, resumeID string) (Download, error) {
	if err := s.allow(ctx, quota.ActionExportDownload, userID, s.Limits.Download); err != nil {
		return Download{}, err
	}
	plan, err := s.Plans.PlanForUser(ctx, userID)
	if err != nil {
		return Download{}, fmt.Errorf("resolve plan: %w", err)
	}
	if err := s.Quota.AssertWithinExportLimit(ctx, userID, plan.PlanID); err != nil {
		s.countRejection(err)
		return Download{}, err
	}

	snap, err := s.Snapshots.CreateSnapshot(ctx, userID, resumeID)
	if err != nil {
		return Download{}, err
	}
	if snap == nil {
		return Download{}, ErrNotFound
	}

	data, err := renderSnapshot(ctx, s.Renderer, *snap)
	if err != nil {
		return Download{}, err
	}
	// Charged after rendering, so a render failure leaves nothing to undo.
	if _, err := s.Quota.Reserve(ctx, userID, plan.PlanID, int64(len(data))); err != nil {
		s.countRejection(err)
		return Download{}, err
	}

	metrics.IncDirectDownload()
	telemetry.Info("export.direct_download", map[string]any{
		"user_id":     userID,
		"resume_id":   resumeID,
		"snapshot_id": snap.ID,
		"bytes":       len(data),
	})
	return Download{FileName: downloadFileName(resumeID), Data: data}, nil
}

func (s *Service) allow(ctx context.Context, action, userID string, limit int64) error {
	if s.RateLimiter == nil || limit <= 0 {
		return nil
	}
	window := s.Limits.Window
	if window <= 0 {
		window = time.Minute
	}
	if err := s.RateLimiter.Allow(ctx, quota.RateLimitKey(action, userID), limit, window); err != nil {
		s.countRejection(err)
		return err
	}
	return nil
}

func (s *Service) linkTTL(expiresAt *time.Time) (time.Duration, bool) {
	ttl := s.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	if expiresAt == nil {
		return ttl, true
	}
	left := expiresAt.Sub(s.now())
	if left <= 0 {
		return 0, false
	}
	if left < ttl {
		ttl = left
	}
	return ttl, true
}

func (s *Service) countRejection(err error) {
	switch {
	case errors.Is(err, quota.ErrRateLimitExceeded):
		metrics.IncLimitRejection("rate_limited")
	case errors.Is(err, quota.ErrQuotaExceeded):
		metrics.IncLimitRejection("quota_exceeded")
	case errors.Is(err, quota.ErrExportLimitReached):
		metrics.IncLimitRejection("export_limit_reached")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func renderSnapshot(ctx context.Context, r render.Renderer, snap snapshots.Snapshot) ([]byte, error) {
	start := time.Now()
	data, err := r.Render(ctx, render.Input{
		SnapshotID: snap.ID,
		ResumeID:   snap.ResumeID,
		Content:    snap.Content,
		TemplateID: snap.TemplateID,
		Theme:      snap.Theme,
	})
	metrics.ObserveRenderSeconds(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, render.ErrRenderFailure) {
			err = fmt.Errorf("%w: %v", render.ErrRenderFailure, err)
		}
		return nil, err
	}
	metrics.ObserveArtifactBytes(len(data))
	return data, nil
}
