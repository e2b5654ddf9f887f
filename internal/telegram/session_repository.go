package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-fitness-coach/internal/database"
)

const (
	sessionTypeAdjust = "adjust"
	stateAwaitingDay  = "awaiting_feedback"
)

// Session is an open conversation about one day of the user's plan.
type Session struct {
	ID          int64
	UserID      string
	SessionType string
	State       string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData is stored as JSON in context_data.
type SessionContextData struct {
	PlanID string `json:"plan_id"`
	Day    int    `json:"day"`
}

// GetContextData unmarshals the context_data JSON field.
func (s *Session) GetContextData() (SessionContextData, error) {
	var data SessionContextData
	err := json.Unmarshal([]byte(s.ContextData), &data)
	return data, err
}

// SessionRepository persists chat sessions.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create replaces any session the user has open and returns the new ID.
func (sr *SessionRepository) Create(ctx context.Context, userID, sessionType, state string, contextData SessionContextData, ttl time.Duration) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, err
	}
	if _, err := sr.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}

	now := sr.now()
	res, err := sr.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (user_id, session_type, state, context_data, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sessionType, state, string(jsonData),
		database.FormatTime(now.Add(ttl)), database.FormatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// GetActive returns the user's newest unexpired session, or nil.
func (sr *SessionRepository) GetActive(ctx context.Context, userID string) (*Session, error) {
	row := sr.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_type, state, context_data, expires_at, created_at
		 FROM chat_sessions
		 WHERE user_id = ? AND expires_at > ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID, database.FormatTime(sr.now()),
	)

	var (
		s                    Session
		expiresAt, createdAt string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SessionType, &s.State, &s.ContextData, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = database.ParseTime(expiresAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch pushes the expiry of a session forward.
func (sr *SessionRepository) Touch(ctx context.Context, sessionID int64, ttl time.Duration) error {
	_, err := sr.db.ExecContext(ctx, `UPDATE chat_sessions SET expires_at = ? WHERE id = ?`,
		database.FormatTime(sr.now().Add(ttl)), sessionID)
	return err
}

func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	return err
}

// CleanupExpired removes expired sessions and reports how many went.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := sr.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE expires_at <= ?`, database.FormatTime(sr.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
