package exports

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrQueueUnavailable = errors.New("export queue unavailable")
	ErrInvalidState     = errors.New("invalid export state transition")
	// ErrSnapshotTaken means another record already exports the snapshot.
	ErrSnapshotTaken = errors.New("snapshot already has an export record")
)
