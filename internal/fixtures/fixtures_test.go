package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSource_NoFlags(t *testing.T) {
	src := NewSource(config.FixtureFlags{}, "", logger.NewNop())
	assert.IsType(t, None{}, src)
	_, ok := src.Lookup(Plan)
	assert.False(t, ok)
}

func TestSource_BuiltInDefaults(t *testing.T) {
	src := NewSource(config.FixtureFlags{Plan: true}, "", logger.NewNop())

	data, ok := src.Lookup(Plan)
	require.True(t, ok)
	var plan struct {
		Schedule []json.RawMessage `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Len(t, plan.Schedule, 7)

	_, ok = src.Lookup(Kind("analyze"))
	assert.False(t, ok, "unknown kinds stay live")
}

func TestSource_DirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.json"), []byte(`{"weekly_focus":"custom"}`), 0o644))
	src := NewSource(config.FixtureFlags{Plan: true}, dir, logger.NewNop())

	data, ok := src.Lookup(Plan)
	require.True(t, ok)
	assert.JSONEq(t, `{"weekly_focus":"custom"}`, string(data))
}

func TestSource_MissingFileUsesDefault(t *testing.T) {
	src := NewSource(config.FixtureFlags{Plan: true}, t.TempDir(), logger.NewNop())

	data, ok := src.Lookup(Plan)
	require.True(t, ok)
	assert.Contains(t, string(data), "schedule")
}
