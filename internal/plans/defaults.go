package plans

import "strings"

// DefaultLimits are the seed tiers used by dev mode and the initial migration.
func DefaultLimits() []Limits {
	return []Limits{
		{PlanID: "plan_free", MaxExports: 5, DailyUploadMB: 10},
		{PlanID: "plan_pro", MaxExports: 100, DailyUploadMB: 200},
		{PlanID: "plan_business", MaxExports: 1000, DailyUploadMB: 1024},
	}
}

func codeForDefault(planID string) string {
	return strings.ToUpper(strings.TrimPrefix(planID, "plan_"))
}
