package acceptance_tests

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/fixtures"
	"ai-fitness-coach/internal/ghost"
	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/planstore"
	"ai-fitness-coach/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Ghost Client ---
type mockGhostClient struct {
	fetchCalls int
}

func (m *mockGhostClient) FetchPosts(ctx context.Context) ([]ghost.Post, error) {
	m.fetchCalls++
	return []ghost.Post{
		{ID: "legs", Title: "Leg Day Burner", HTML: "<p>WORKOUT:legs</p>", UpdatedAt: "2026-01-01T10:00:00Z"},
		{ID: "cardio-a", Title: "Cardio Blast", HTML: "<p>WORKOUT:blast</p>", UpdatedAt: "2026-01-01T10:00:00Z"},
		{ID: "cardio-b", Title: "Quick Cardio", HTML: "<p>WORKOUT:quick</p>", UpdatedAt: "2026-01-01T10:00:00Z"},
	}, nil
}

func (m *mockGhostClient) CreatePost(ctx context.Context, title, html string, publish bool) (*ghost.Post, error) {
	return &ghost.Post{ID: "clipped", Title: title, HTML: html}, nil
}

// --- Mock LLM ---
// mockLLM answers every stage, routed on the prompt header.
type mockLLM struct {
	mu    sync.Mutex
	calls map[string]int
}

var extracted = map[string]string{
	"WORKOUT:legs":  `{"title": "Leg Day Burner", "duration_mins": 35, "focus": ["Legs"]}`,
	"WORKOUT:blast": `{"title": "Cardio Blast", "duration_mins": "38 mins", "focus": ["Cardio"]}`,
	"WORKOUT:quick": `{"title": "Quick Cardio", "duration_mins": 20, "focus": ["Cardio"]}`,
}

const skeleton = `{
  "weekly_goal": "Build an aerobic base",
  "days": [
    {"day": 1, "focus": "Legs", "search_query": "leg day strength"},
    {"day": 2, "focus": "Rest", "search_query": ""},
    {"day": 3, "focus": "Cardio", "search_query": "cardio blast endurance"},
    {"day": 4, "focus": "Rest", "search_query": ""},
    {"day": 5, "focus": "Rest", "search_query": ""},
    {"day": 6, "focus": "Rest", "search_query": ""},
    {"day": 7, "focus": "Rest", "search_query": ""}
  ]
}`

const assembly = "```json\n" + `{
  "weekly_focus": "Legs and cardio",
  "schedule": [
    {"day": 1, "day_name": "Mon", "workout_id": "legs", "activity": "Leg Day Burner", "is_rest": false, "notes": "Strong start"},
    {"day": 2, "day_name": "Tue", "workout_id": null, "activity": "Rest", "is_rest": true, "notes": ""},
    {"day": 3, "day_name": "Wed", "workout_id": "cardio-a", "activity": "Cardio Blast", "is_rest": false, "notes": "Push the pace"},
    {"day": 4, "day_name": "Thu", "workout_id": null, "activity": "Rest", "is_rest": true, "notes": ""},
    {"day": 5, "day_name": "Fri", "workout_id": null, "activity": "Rest", "is_rest": true, "notes": ""},
    {"day": 6, "day_name": "Sat", "workout_id": null, "activity": "Rest", "is_rest": true, "notes": ""},
    {"day": 7, "day_name": "Sun", "workout_id": null, "activity": "Rest", "is_rest": true, "notes": ""}
  ]
}` + "\n```"

func (m *mockLLM) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	kind, content := m.route(prompt)
	m.mu.Lock()
	m.calls[kind]++
	m.mu.Unlock()
	return llm.ContentResponse{Content: content, Usage: shared.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}}, nil
}

func (m *mockLLM) route(prompt string) (string, string) {
	switch {
	case strings.Contains(prompt, "Workout Extractor Prompt"):
		for marker, out := range extracted {
			if strings.Contains(prompt, marker) {
				return "extract", out
			}
		}
		return "extract", "no json here"
	case strings.Contains(prompt, "planning one week of training"):
		return "skeleton", skeleton
	case strings.Contains(prompt, "finalising a client's weekly workout plan"):
		return "assembly", assembly
	case strings.Contains(prompt, "Classify the user's message"):
		return "intent", `{"intent": "ADJUST_WORKOUT"}`
	case strings.Contains(prompt, "Write one search query"):
		return "query", "quick cardio"
	}
	return "unknown", ""
}

func (m *mockLLM) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

// countingEmbedder maps keywords onto fixed directions so similarity is predictable.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "leg"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "blast"):
		return []float32{0, 1, 0}, nil
	case strings.Contains(lower, "quick"):
		return []float32{0, 0.6, 0.8}, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *countingEmbedder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// --- Acceptance Test ---
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := logger.NewNop()

	db, err := database.NewDB(filepath.Join(dir, "coach.db"))
	require.NoError(t, err)
	defer db.Close()

	ghostClient := &mockGhostClient{}
	model := &mockLLM{calls: map[string]int{}}
	realEmbedder := &countingEmbedder{}
	embedder, err := llm.NewCachedEmbeddingGenerator(realEmbedder, filepath.Join(dir, "embeddings.json"), log)
	require.NoError(t, err)

	catalogRepo := catalog.NewRepository(db.SQL)
	vectors := catalog.NewVectorRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	plans := planstore.NewSQLiteStore(db.SQL)

	coach := planner.NewPlanner(planner.Generators{
		Skeleton: model,
		Assembly: model,
		Query:    model,
		Intent:   model,
	}, catalog.NewSearcher(embedder, vectors, catalogRepo, log), fixtures.None{}, log, 2)

	application := app.NewApp(ghostClient, catalog.NewExtractor(model, embedder, vectors),
		catalogRepo, metricsStore, coach, plans, nil, log)
	application.SetIngestDelay(0)

	// --- Step 1: Ingestion ---
	t.Log("--- Step 1: Ingesting Workouts ---")
	report, err := application.IngestWorkouts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Saved)
	assert.Equal(t, 3, model.count("extract"))
	assert.Equal(t, 3, realEmbedder.count())

	current, err := catalogRepo.IsCurrent(ctx, "cardio-a", "2026-01-01T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, current, "ingested workouts are cached by post version")

	// --- Step 2: Re-ingestion skips unchanged posts ---
	t.Log("--- Step 2: Re-ingesting ---")
	report, err = application.IngestWorkouts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 3, model.count("extract"), "unchanged posts are not re-extracted")

	report, err = application.IngestWorkouts(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Saved)
	assert.Equal(t, 6, model.count("extract"))
	assert.Equal(t, 3, realEmbedder.count(), "identical embedding text is served from the cache")

	// --- Step 3: Planning ---
	t.Log("--- Step 3: Generating Weekly Plan ---")
	plan, err := application.GeneratePlanForUser(ctx, "u1", "build an aerobic base", false)
	require.NoError(t, err)
	require.NoError(t, plan.Validate())
	assert.Equal(t, planner.StatusGenerated, plan.Status)
	assert.Equal(t, 1, model.count("skeleton"))
	assert.Equal(t, 1, model.count("assembly"))

	monday, _ := plan.Day(1)
	require.NotNil(t, monday.WorkoutID)
	assert.Equal(t, "legs", *monday.WorkoutID)
	wednesday, _ := plan.Day(3)
	require.NotNil(t, wednesday.WorkoutID)
	assert.Equal(t, "cardio-a", *wednesday.WorkoutID)
	require.NotNil(t, wednesday.Details)
	assert.Equal(t, 38, *wednesday.Details.DurationMins)

	again, err := application.GeneratePlanForUser(ctx, "u1", "build an aerobic base", false)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, again.ID, "an unchanged goal reuses the stored plan")
	assert.Equal(t, 1, model.count("skeleton"))

	// --- Step 4: Adjustment ---
	t.Log("--- Step 4: Adjusting Wednesday ---")
	reply, err := application.Chat(ctx, "u1", 3, "can you make it shorter?")
	require.NoError(t, err)
	require.True(t, reply.Updated)
	assert.Equal(t, planner.IntentAdjust, reply.Result.Intent)
	assert.Equal(t, planner.StageSelected, reply.Result.Adjustment.Stage)
	assert.Contains(t, reply.Result.ResponseText, "Quick Cardio")

	stored, err := plans.Latest(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, stored.Validate())
	assert.Equal(t, planner.StatusAdjusted, stored.Status)
	wednesday, _ = stored.Day(3)
	require.NotNil(t, wednesday.WorkoutID)
	assert.Equal(t, "cardio-b", *wednesday.WorkoutID)
	monday, _ = stored.Day(1)
	assert.Equal(t, "legs", *monday.WorkoutID, "other days are untouched")

	// --- Step 5: Metrics ---
	usage, err := application.Usage(ctx, 1)
	require.NoError(t, err)
	agents := map[string]int{}
	for _, a := range usage.Agents {
		agents[a.AgentName] = a.Executions
	}
	assert.Equal(t, 6, agents["Extractor"])
	assert.Equal(t, 1, agents["Skeleton"])
	assert.Equal(t, 1, agents["Intent"])
}
