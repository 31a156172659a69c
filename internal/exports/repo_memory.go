package exports

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Record
}

var _ Repo = (*MemoryRepo)(nil)

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Record)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Status != StatusPending {
		return ErrInvalidState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.SnapshotID == rec.SnapshotID {
			return ErrSnapshotTaken
		}
	}
	r.data[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.data {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) MarkReady(ctx context.Context, id, storageKey string, expiresAt, now time.Time) (bool, error) {
	return r.update(ctx, id, func(rec *Record) error {
		return rec.markReady(storageKey, expiresAt, now)
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	return r.update(ctx, id, func(rec *Record) error {
		return rec.markFailed(reason, now)
	})
}

func (r *MemoryRepo) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.data {
		if rec.Status == StatusPending && rec.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) FailPendingOlderThan(ctx context.Context, cutoff time.Time, reason string, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.data {
		if rec.Status != StatusPending || !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := rec.markFailed(reason, now); err != nil {
			return n, err
		}
		r.data[id] = rec
		n++
	}
	return n, nil
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Record) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[id]
	if !ok {
		return false, ErrNotFound
	}
	if IsTerminal(rec.Status) {
		return false, nil
	}
	if err := fn(&rec); err != nil {
		return false, err
	}
	r.data[id] = rec
	return true, nil
}
