package plans

import "context"

// Repo resolves a user's plan and the plan's limits.
type Repo interface {
	PlanForUser(ctx context.Context, userID string) (Plan, error)
	LimitsForPlan(ctx context.Context, planID string) (Limits, error)
}
