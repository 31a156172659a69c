package plans

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// PlanForUser returns the user's assigned plan, or the FREE plan when unassigned.
func (r *PGRepo) PlanForUser(ctx context.Context, userID string) (Plan, error) {
	const query = `
SELECT p.id, p.code
FROM user_plans up
JOIN plans p ON p.id = up.plan_id
WHERE up.user_id = $1`
	var p Plan
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&p.PlanID, &p.PlanCode)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Plan{}, err
	}

	const fallback = `SELECT id, code FROM plans WHERE code = $1 LIMIT 1`
	err = r.DB.QueryRowContext(ctx, fallback, CodeFree).Scan(&p.PlanID, &p.PlanCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	return p, nil
}

// LimitsForPlan returns the limits row for planID.
func (r *PGRepo) LimitsForPlan(ctx context.Context, planID string) (Limits, error) {
	const query = `
SELECT plan_id, max_exports, daily_upload_mb
FROM plan_limits
WHERE plan_id = $1`
	var l Limits
	err := r.DB.QueryRowContext(ctx, query, planID).Scan(&l.PlanID, &l.MaxExports, &l.DailyUploadMB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Limits{}, ErrLimitsNotFound
		}
		return Limits{}, err
	}
	return l, nil
}
