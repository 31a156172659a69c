package snapshots

import (
	"bytes"
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Snapshot
}

var _ Repo = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Snapshot)}
}

func (r *MemoryRepo) Create(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Content = bytes.Clone(s.Content)
	s.Theme = bytes.Clone(s.Theme)
	r.data[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	s.Content = bytes.Clone(s.Content)
	s.Theme = bytes.Clone(s.Theme)
	return s, nil
}

// MemoryResumes is an in-memory ResumeSource for dev and tests.
type MemoryResumes struct {
	mu   sync.RWMutex
	data map[string]Resume
}

var _ ResumeSource = (*MemoryResumes)(nil)

func NewMemoryResumes() *MemoryResumes {
	return &MemoryResumes{data: make(map[string]Resume)}
}

// Put stores or replaces a resume.
func (m *MemoryResumes) Put(r Resume) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Content = bytes.Clone(r.Content)
	m.data[r.ID] = r
}

func (m *MemoryResumes) GetResume(ctx context.Context, resumeID, userID string) (*Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[resumeID]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	r.Content = bytes.Clone(r.Content)
	r.Theme = bytes.Clone(r.Theme)
	return &r, nil
}
