package plans

import "errors"

var (
	// ErrNotFound is returned when a user has no plan and no default plan exists.
	ErrNotFound = errors.New("plan not found")
	// ErrLimitsNotFound is returned when a plan has no limits row.
	ErrLimitsNotFound = errors.New("plan limits not found")
)
