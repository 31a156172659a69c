package snapshots

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service captures immutable copies of resumes.
type Service struct {
	Resumes ResumeSource
	Repo    Repo
	Now     func() time.Time
	NewID   func() string
}

// CreateSnapshot copies the current content of resumeID. It returns nil, nil
// when the resume is absent for userID.
func (s *Service) CreateSnapshot(ctx context.Context, userID, resumeID string) (*Snapshot, error) {
	res, err := s.Resumes.GetResume(ctx, resumeID, userID)
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	snap := Snapshot{
		ID:         s.newID(),
		ResumeID:   res.ID,
		UserID:     userID,
		Content:    bytes.Clone(res.Content),
		TemplateID: res.TemplateID,
		Theme:      bytes.Clone(res.Theme),
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return &snap, nil
}

// Get returns a stored snapshot.
func (s *Service) Get(ctx context.Context, snapshotID string) (Snapshot, error) {
	return s.Repo.GetByID(ctx, snapshotID)
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
