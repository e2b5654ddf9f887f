package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/planner"
)

// StoredPlan is one row of plan history.
type StoredPlan struct {
	ID        int64
	UserID    string
	Plan      *planner.WeeklyPlan
	CreatedAt time.Time
}

// SQLiteStore keeps the full plan history in the weekly_plans table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Save inserts a new plan version for the user.
func (s *SQLiteStore) Save(ctx context.Context, userID string, plan *planner.WeeklyPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weekly_plans (user_id, plan_data, created_at) VALUES (?, ?, ?)`,
		userID, string(data), database.FormatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save plan for user %s: %w", userID, err)
	}
	return nil
}

// Latest returns the most recently saved plan for the user.
func (s *SQLiteStore) Latest(ctx context.Context, userID string) (*planner.WeeklyPlan, error) {
	plans, err := s.ListRecent(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ErrNoPlan
	}
	return plans[0].Plan, nil
}

// ListRecent retrieves the N most recent plans for a given user.
func (s *SQLiteStore) ListRecent(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, plan_data, created_at FROM weekly_plans
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []StoredPlan
	for rows.Next() {
		var (
			sp        StoredPlan
			data      string
			createdAt string
		)
		if err := rows.Scan(&sp.ID, &sp.UserID, &data, &createdAt); err != nil {
			return nil, err
		}
		sp.Plan = &planner.WeeklyPlan{}
		if err := json.Unmarshal([]byte(data), sp.Plan); err != nil {
			return nil, fmt.Errorf("failed to decode plan %d: %w", sp.ID, err)
		}
		if sp.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
