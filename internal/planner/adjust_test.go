package planner

import (
	"context"
	"errors"
	"testing"

	"ai-fitness-coach/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() *WeeklyPlan {
	return &WeeklyPlan{
		ID:     "plan-1",
		Status: StatusGenerated,
		Schedule: []PlanDay{
			workoutDay(1, item("legs", 36, "Legs"), ""),
			restDay(2, "Rest", ""),
			workoutDay(3, item("upper", 30, "Upper Body"), ""),
			workoutDay(4, item("core", 20, "Core"), ""),
			workoutDay(5, item("mobility", 26, "Mobility"), ""),
			workoutDay(6, item("glutes", 40, "Glutes"), ""),
			restDay(7, "Rest", ""),
		},
	}
}

func adjustPlanner(intent, query string, search *fakeSearch) *Planner {
	return newTestPlanner(Generators{
		Intent: &scriptedGen{responses: []string{intent}},
		Query:  &scriptedGen{responses: []string{query}},
	}, search, nil)
}

func TestChat_AdjustLongerScenario(t *testing.T) {
	c38 := item("c38", 38, "Cardio")
	c38.URL = " `https://videos.example/c38` "
	search := &fakeSearch{all: []catalog.Item{
		item("legs", 36, "Legs"),
		c38,
		item("c20", 20, "Cardio"),
		item("c45", 45, "Cardio"),
	}}
	p := adjustPlanner(`{"intent": "ADJUST_WORKOUT"}`, "\"cardio session 35-40 minutes\"\n", search)
	plan := testPlan()

	res, metas := p.Chat(context.Background(), "how about one between 35-40 mins", 5, plan)

	require.Equal(t, IntentAdjust, res.Intent)
	require.NotNil(t, res.Adjustment)
	adj := res.Adjustment
	assert.True(t, adj.Success)
	assert.Equal(t, StageSelected, adj.Stage)
	require.NotNil(t, adj.NewWorkoutID)
	assert.Equal(t, "c38", *adj.NewWorkoutID, "legs is scheduled on day 1 and c20/c45 are out of range")
	assert.False(t, adj.IsRest)
	assert.Contains(t, adj.Summary, "longer")
	assert.Equal(t, "https://videos.example/c38", adj.Workout.URL)
	assert.Equal(t, adj.AgentResponse, res.ResponseText)
	assert.Len(t, metas, 2)

	require.NotEmpty(t, search.calls)
	first := search.calls[0]
	assert.Equal(t, "cardio session 35-40 minutes", first.Query)
	assert.Equal(t, 35, *first.Min)
	assert.Equal(t, 40, *first.Max)

	updated, err := ApplyAdjustment(plan, adj)
	require.NoError(t, err)
	assert.Equal(t, StatusAdjusted, updated.Status)
	day5, _ := updated.Day(5)
	assert.Equal(t, "c38", *day5.WorkoutID)
	assert.Equal(t, adj.Summary, day5.Notes)
	assert.NoError(t, updated.Validate())

	orig, _ := plan.Day(5)
	assert.Equal(t, "mobility", *orig.WorkoutID, "original plan untouched")
}

func TestAdjustDay_RelaxesDurationBeforeResting(t *testing.T) {
	search := &fakeSearch{bounded: true, all: []catalog.Item{
		item("c20", 20, "Cardio"),
		item("c30", 30, "Cardio"),
	}}
	p := adjustPlanner("", "short cardio", search)

	res, _ := p.AdjustDay(context.Background(), "under 5 minutes", 5, testPlan())

	assert.True(t, res.Success)
	assert.Equal(t, StageRelaxedSelected, res.Stage)
	require.NotNil(t, res.NewWorkoutID)
	assert.Equal(t, "c20", *res.NewWorkoutID)
	assert.Equal(t, 5, *res.Constraint.Max)
	assert.Contains(t, res.Summary, "shorter")
	require.Len(t, search.calls, 2)
	assert.Nil(t, search.calls[1].Max, "second search drops the duration bound")
}

func TestAdjustDay_RelaxesFurtherWithBroaderQuery(t *testing.T) {
	search := &fakeSearch{byQuery: map[string][]catalog.Item{
		"stretch flow":     {item("legs", 30, "Legs"), item("upper", 30, "Upper Body")},
		"Mobility workout": {item("glutes", 40, "Glutes"), item("yoga", 25, "Mobility")},
	}}
	p := adjustPlanner("", "stretch flow", search)

	res, _ := p.AdjustDay(context.Background(), "something different", 5, testPlan())

	assert.Equal(t, StageRelaxedFurther, res.Stage)
	require.NotNil(t, res.NewWorkoutID)
	assert.Equal(t, "yoga", *res.NewWorkoutID)
}

func TestAdjustDay_IgnoresDayReferenceInMessage(t *testing.T) {
	search := &fakeSearch{all: []catalog.Item{item("m20", 20, "Mobility"), item("m45", 45, "Mobility")}, bounded: true}
	p := adjustPlanner("", "mobility flow", search)

	res, _ := p.AdjustDay(context.Background(), "change day 5 to 20 mins", 5, testPlan())

	assert.Nil(t, res.Constraint.Min)
	require.NotNil(t, res.Constraint.Max)
	assert.Equal(t, 20, *res.Constraint.Max)
	require.NotNil(t, res.NewWorkoutID)
	assert.Equal(t, "m20", *res.NewWorkoutID)
}

func TestAdjustDay_RestsWhenNothingFits(t *testing.T) {
	p := adjustPlanner("", "anything", &fakeSearch{})
	plan := testPlan()

	res, _ := p.AdjustDay(context.Background(), "make it shorter", 3, plan)

	assert.True(t, res.Success)
	assert.Equal(t, StageRested, res.Stage)
	assert.True(t, res.IsRest)
	assert.Nil(t, res.NewWorkoutID)
	assert.Contains(t, res.AgentResponse, "Sorry")

	updated, err := ApplyAdjustment(plan, res)
	require.NoError(t, err)
	day3, _ := updated.Day(3)
	assert.True(t, day3.IsRest)
	assert.Nil(t, day3.WorkoutID)
	assert.Nil(t, day3.Details)
}

func TestAdjustDay_DayNotFound(t *testing.T) {
	search := &fakeSearch{}
	p := adjustPlanner("", "q", search)

	res, metas := p.AdjustDay(context.Background(), "shorter", 9, testPlan())

	assert.False(t, res.Success)
	assert.Equal(t, StageDayNotFound, res.Stage)
	assert.Equal(t, dayNotFoundMessage, res.AgentResponse)
	assert.Empty(t, metas)
	assert.Empty(t, search.calls)

	_, err := ApplyAdjustment(testPlan(), res)
	assert.ErrorIs(t, err, ErrAdjustmentFailed)
}

func TestAdjustDay_EmptyQueryFallsBackToActivity(t *testing.T) {
	search := &fakeSearch{}
	p := adjustPlanner("", "   \n", search)

	p.AdjustDay(context.Background(), "too hard", 5, testPlan())

	require.NotEmpty(t, search.calls)
	assert.Equal(t, "mobility", search.calls[0].Query)
}

func TestChat_NonAdjustIntents(t *testing.T) {
	cases := map[string]Intent{
		"MOTIVATION":                    IntentMotivation,
		`{"intent": "EXPLAIN_WORKOUT"}`: IntentExplain,
		"no idea":                       IntentOther,
	}
	for raw, want := range cases {
		search := &fakeSearch{}
		p := adjustPlanner(raw, "q", search)

		res, _ := p.Chat(context.Background(), "hello", 1, testPlan())

		assert.Equal(t, want, res.Intent, raw)
		assert.Nil(t, res.Adjustment)
		assert.Equal(t, UnsupportedIntentMessage, res.ResponseText)
		assert.Empty(t, search.calls)
	}
}

func TestClassifyIntent_ErrorDefaultsToOther(t *testing.T) {
	p := newTestPlanner(Generators{Intent: &scriptedGen{err: errors.New("boom")}}, &fakeSearch{}, nil)
	intent, _ := p.ClassifyIntent(context.Background(), "make it shorter", DayContext{Day: 1})
	assert.Equal(t, IntentOther, intent)
}
