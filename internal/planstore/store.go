// Package planstore persists each user's weekly plans.
package planstore

import (
	"context"
	"errors"

	"ai-fitness-coach/internal/planner"
)

// ErrNoPlan is returned when a user has no stored plan.
var ErrNoPlan = errors.New("no plan stored for user")

// Store saves plans and returns the most recent one per user.
type Store interface {
	Save(ctx context.Context, userID string, plan *planner.WeeklyPlan) error
	Latest(ctx context.Context, userID string) (*planner.WeeklyPlan, error)
}
