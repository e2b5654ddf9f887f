package planstore

import (
	"context"
	"errors"

	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/planner"
)

// Cache is a Store whose entries can be dropped.
type Cache interface {
	Store
	Delete(ctx context.Context, userID string) error
}

// Layered writes through a cache in front of a durable store. Cache errors
// are logged and never fail a request. A cache entry that could not be
// refreshed is dropped so reads go back to the durable store.
type Layered struct {
	primary Store
	cache   Cache
	log     *logger.Logger
}

func NewLayered(primary Store, cache Cache, log *logger.Logger) *Layered {
	return &Layered{primary: primary, cache: cache, log: log.With("service", "PlanStore")}
}

func (l *Layered) Save(ctx context.Context, userID string, plan *planner.WeeklyPlan) error {
	if err := l.primary.Save(ctx, userID, plan); err != nil {
		return err
	}
	if err := l.cache.Save(ctx, userID, plan); err != nil {
		l.log.Warn("failed to cache plan, dropping cached copy", "user_id", userID, "error", err)
		if err := l.cache.Delete(ctx, userID); err != nil {
			l.log.Error("failed to drop stale cached plan", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (l *Layered) Latest(ctx context.Context, userID string) (*planner.WeeklyPlan, error) {
	plan, err := l.cache.Latest(ctx, userID)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrNoPlan) {
		l.log.Warn("plan cache read failed", "user_id", userID, "error", err)
	}

	plan, err = l.primary.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Save(ctx, userID, plan); err != nil {
		l.log.Warn("failed to backfill plan cache", "user_id", userID, "error", err)
	}
	return plan, nil
}
