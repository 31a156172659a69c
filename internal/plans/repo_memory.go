package plans

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu        sync.RWMutex
	plans     map[string]Plan   // planID -> plan
	limits    map[string]Limits // planID -> limits
	userPlans map[string]string // userID -> planID
}

var _ Repo = (*MemoryRepo)(nil)

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		plans:     make(map[string]Plan),
		limits:    make(map[string]Limits),
		userPlans: make(map[string]string),
	}
}

// NewSeededMemoryRepo returns a MemoryRepo holding the default tiers.
func NewSeededMemoryRepo() *MemoryRepo {
	r := NewMemoryRepo()
	for _, l := range DefaultLimits() {
		r.PutPlan(Plan{PlanID: l.PlanID, PlanCode: codeForDefault(l.PlanID)}, &l)
	}
	return r
}

// PutPlan stores a plan and, when limits is non-nil, its limits.
func (r *MemoryRepo) PutPlan(p Plan, limits *Limits) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.PlanID] = p
	if limits != nil {
		l := *limits
		l.PlanID = p.PlanID
		r.limits[p.PlanID] = l
	}
}

// Assign puts userID on planID.
func (r *MemoryRepo) Assign(userID, planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userPlans[userID] = planID
}

// PlanForUser returns the user's plan, falling back to the FREE plan.
func (r *MemoryRepo) PlanForUser(ctx context.Context, userID string) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if planID, ok := r.userPlans[userID]; ok {
		if p, ok := r.plans[planID]; ok {
			return p, nil
		}
	}
	for _, p := range r.plans {
		if p.PlanCode == CodeFree {
			return p, nil
		}
	}
	return Plan{}, ErrNotFound
}

// LimitsForPlan returns the limits row for planID.
func (r *MemoryRepo) LimitsForPlan(ctx context.Context, planID string) (Limits, error) {
	if err := ctx.Err(); err != nil {
		return Limits{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.limits[planID]
	if !ok {
		return Limits{}, ErrLimitsNotFound
	}
	return l, nil
}
