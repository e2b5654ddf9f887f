package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"catalog_items", "catalog_embeddings", "weekly_plans", "execution_metrics", "chat_sessions"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}

	// A second run against the same file is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestFormatTime_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 2, 18, 30, 5, 0, time.FixedZone("X", 3600))

	parsed, err := ParseTime(FormatTime(ts))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
	assert.Equal(t, "2026-03-02 17:30:05", FormatTime(ts))
}
