package plans

// Plan codes understood by the delivery policy.
const (
	CodeFree     = "FREE"
	CodePro      = "PRO"
	CodeBusiness = "BUSINESS"
	CodeTeam     = "TEAM"
)

// Plan identifies the subscription tier a user is on.
type Plan struct {
	PlanID   string
	PlanCode string
}

// Limits are the per-plan quotas. A missing Limits row is a configuration error.
type Limits struct {
	PlanID        string
	MaxExports    int64
	DailyUploadMB int64
}

// DailyUploadBytes converts the megabyte budget to bytes.
func (l Limits) DailyUploadBytes() int64 {
	return l.DailyUploadMB * 1024 * 1024
}
