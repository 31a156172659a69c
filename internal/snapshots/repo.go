package snapshots

import "context"

// Repo persists snapshots. There is no update.
type Repo interface {
	Create(ctx context.Context, s Snapshot) error
	GetByID(ctx context.Context, id string) (Snapshot, error)
}

// ResumeSource reads current resume content. It returns nil, nil when the
// resume does not exist or is not owned by userID.
type ResumeSource interface {
	GetResume(ctx context.Context, resumeID, userID string) (*Resume, error)
}
