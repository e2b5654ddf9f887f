package main

import (
	"bytes"
	"strings"
	"testing"

	"ai-fitness-coach/internal/httpapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e := &env{}
	t.Cleanup(e.close)
	root := newRootCmd(e)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test")
	t.Setenv("API_JWT_SECRET", "s3cret")
	t.Setenv("LOG_MODE", "prod")

	out, err := run(t, "token", "--user", "u42")
	require.NoError(t, err)

	userID, err := httpapi.NewVerifier("s3cret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u42", userID)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test")
	t.Setenv("API_JWT_SECRET", "")

	_, err := run(t, "token", "--user", "u42")
	assert.ErrorContains(t, err, "API_JWT_SECRET")
}

func TestIngestCmd_RequiresGhost(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test")
	t.Setenv("GHOST_API_URL", "")
	t.Setenv("GHOST_CONTENT_API_KEY", "")

	_, err := run(t, "ingest")
	assert.ErrorContains(t, err, "GHOST_API_URL")
}

func TestMissingConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := run(t, "usage")
	assert.ErrorContains(t, err, "GEMINI_API_KEY environment variable not set")
}
