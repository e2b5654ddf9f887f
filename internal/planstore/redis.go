package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/planner"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "plan:"

// RedisStore keeps only the current plan per user under plan:<user>.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedisStore connects to addr and verifies the connection. A zero ttl
// keeps plans until overwritten.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb, ttl: ttl, log: log.With("service", "RedisPlanStore")}, nil
}

func (s *RedisStore) Save(ctx context.Context, userID string, plan *planner.WeeklyPlan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+userID, raw, s.ttl).Err()
}

func (s *RedisStore) Latest(ctx context.Context, userID string) (*planner.WeeklyPlan, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNoPlan
	}
	if err != nil {
		return nil, err
	}
	var plan planner.WeeklyPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode cached plan: %w", err)
	}
	return &plan, nil
}

// Delete drops the cached plan.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, keyPrefix+userID).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
