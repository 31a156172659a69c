package exports

import (
	"io"
	"time"
)

// Status is the lifecycle state of an export record.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusReady   Status = "READY"
	StatusFailed  Status = "FAILED"
)

// Record tracks one export request from PENDING to a terminal state.
type Record struct {
	ID         string
	UserID     string
	SnapshotID string
	Status     Status
	StorageKey *string
	ExpiresAt  *time.Time
	Error      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusView is what the status query returns.
type StatusView struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Error       *string    `json:"error"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	DownloadURL *string    `json:"downloadUrl"`
}

// EnqueueResult is returned when an async export is accepted.
type EnqueueResult struct {
	ExportID string `json:"exportId"`
	Delivery string `json:"delivery"`
}

// Download is a synchronously rendered PDF.
type Download struct {
	FileName string
	Data     []byte
}

// Artifact is an open stored PDF. The caller closes Body.
type Artifact struct {
	FileName string
	Body     io.ReadCloser
}
