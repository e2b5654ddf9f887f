package planstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db.SQL)
}

func plan(focus string) *planner.WeeklyPlan {
	return planner.FallbackPlan("goal", focus, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	_, err := store.Latest(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoPlan)

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	require.NoError(t, store.Save(ctx, "u1", plan("first")))
	clock = clock.Add(time.Hour)
	require.NoError(t, store.Save(ctx, "u1", plan("second")))
	require.NoError(t, store.Save(ctx, "u2", plan("other user")))

	latest, err := store.Latest(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, latest.WeeklyFocus, "second")
	assert.Len(t, latest.Schedule, 7)

	history, err := store.ListRecent(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Contains(t, history[1].Plan.WeeklyFocus, "first")
	assert.True(t, clock.Equal(history[0].CreatedAt))
}

type memStore struct {
	mu    sync.Mutex
	plans map[string]*planner.WeeklyPlan
	err   error
	saves int
	// saveErrs fail the next saves, one per call.
	saveErrs []error
}

func newMemStore() *memStore {
	return &memStore{plans: map[string]*planner.WeeklyPlan{}}
}

func (m *memStore) Save(ctx context.Context, userID string, p *planner.WeeklyPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]
		return err
	}
	m.saves++
	m.plans[userID] = p
	return nil
}

func (m *memStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.plans, userID)
	return nil
}

func (m *memStore) Latest(ctx context.Context, userID string) (*planner.WeeklyPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.plans[userID]
	if !ok {
		return nil, ErrNoPlan
	}
	return p, nil
}

func TestLayered(t *testing.T) {
	ctx := context.Background()
	primary, cache := newMemStore(), newMemStore()
	store := NewLayered(primary, cache, logger.NewNop())

	require.NoError(t, store.Save(ctx, "u1", plan("a")))
	assert.Equal(t, 1, cache.saves)

	// Cache miss reads through and backfills.
	primary.plans["u2"] = plan("b")
	got, err := store.Latest(ctx, "u2")
	require.NoError(t, err)
	assert.Contains(t, got.WeeklyFocus, "b")
	assert.Contains(t, cache.plans, "u2")

	// A broken cache never fails the request.
	cache.err = errors.New("connection refused")
	require.NoError(t, store.Save(ctx, "u3", plan("c")))
	got, err = store.Latest(ctx, "u3")
	require.NoError(t, err)
	assert.Contains(t, got.WeeklyFocus, "c")

	_, err = store.Latest(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestLayered_FailedCacheWriteDropsStalePlan(t *testing.T) {
	ctx := context.Background()
	primary, cache := newMemStore(), newMemStore()
	store := NewLayered(primary, cache, logger.NewNop())

	require.NoError(t, store.Save(ctx, "u1", plan("v1")))
	got, err := store.Latest(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, got.WeeklyFocus, "v1")

	cache.saveErrs = []error{errors.New("i/o timeout")}
	require.NoError(t, store.Save(ctx, "u1", plan("v2-adjusted")), "the durable write decides the outcome")
	assert.NotContains(t, cache.plans, "u1")

	got, err = store.Latest(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, got.WeeklyFocus, "v2-adjusted")
	assert.Contains(t, cache.plans, "u1", "the next read backfills the cache")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, addr, time.Minute, logger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	userID := "test-" + time.Now().Format("150405.000000")
	defer store.Delete(ctx, userID)

	_, err = store.Latest(ctx, userID)
	assert.ErrorIs(t, err, ErrNoPlan)

	require.NoError(t, store.Save(ctx, userID, plan("cached")))
	got, err := store.Latest(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, got.WeeklyFocus, "cached")
}
