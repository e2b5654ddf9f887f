package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/shared"
)

// ExecutionMetric records metadata for a single agent execution.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store persists execution metrics in the execution_metrics table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	model := m.Model
	if model == "" {
		model = "unknown"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to record metric for %s: %w", m.AgentName, err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Executions
// that consumed no tokens are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	m := MapUsage(meta.AgentName, meta.Usage, meta.Latency)
	m.Timestamp = s.now()
	return s.Record(ctx, m)
}

// RecordAll records every meta, stopping at the first error.
func (s *Store) RecordAll(ctx context.Context, metas []shared.AgentMeta) error {
	for _, m := range metas {
		if err := s.RecordMeta(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx,
		`SELECT date(timestamp) AS day, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		 FROM execution_metrics WHERE timestamp >= ?
		 GROUP BY day ORDER BY day DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			u   DailyUsage
			day sql.NullString
		)
		if err := rows.Scan(&day, &u.TotalExecution, &u.TotalPrompt, &u.TotalCompletion); err != nil {
			return nil, err
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// AgentUsage aggregates one agent's executions.
type AgentUsage struct {
	AgentName    string
	Executions   int
	AvgPrompt    int
	AvgLatencyMS int64
	MaxPrompt    int
}

// GetAgentUsage summarises executions per agent over the last N days.
func (s *Store) GetAgentUsage(ctx context.Context, days int) ([]AgentUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_name, COUNT(*), CAST(AVG(prompt_tokens) AS INTEGER), CAST(AVG(latency_ms) AS INTEGER), MAX(prompt_tokens)
		 FROM execution_metrics WHERE timestamp >= ?
		 GROUP BY agent_name ORDER BY agent_name`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []AgentUsage
	for rows.Next() {
		var u AgentUsage
		if err := rows.Scan(&u.AgentName, &u.Executions, &u.AvgPrompt, &u.AvgLatencyMS, &u.MaxPrompt); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// reports how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(s.now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MapUsage converts token usage into an ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
