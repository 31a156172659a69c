package exports

import "time"

// transitions lists the allowed moves. READY and FAILED have none.
var transitions = map[Status][]Status{
	StatusPending: {StatusReady, StatusFailed},
	StatusReady:   {},
	StatusFailed:  {},
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewPendingRecord builds the initial record for a snapshot.
func NewPendingRecord(id, userID, snapshotID string, now time.Time) Record {
	now = now.UTC()
	return Record{
		ID:         id,
		UserID:     userID,
		SnapshotID: snapshotID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// markReady applies the READY transition in place.
func (r *Record) markReady(storageKey string, expiresAt, now time.Time) error {
	if !CanTransition(r.Status, StatusReady) {
		return ErrInvalidState
	}
	key := storageKey
	exp := expiresAt.UTC()
	r.Status = StatusReady
	r.StorageKey = &key
	r.ExpiresAt = &exp
	r.Error = nil
	r.UpdatedAt = now.UTC()
	return nil
}

// markFailed applies the FAILED transition in place.
func (r *Record) markFailed(reason string, now time.Time) error {
	if !CanTransition(r.Status, StatusFailed) {
		return ErrInvalidState
	}
	msg := reason
	r.Status = StatusFailed
	r.Error = &msg
	r.UpdatedAt = now.UTC()
	return nil
}
