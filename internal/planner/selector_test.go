package planner

import (
	"testing"

	"ai-fitness-coach/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, mins int, focus ...string) catalog.Item {
	return catalog.Item{ID: id, Title: id, DurationMins: catalog.Minutes(mins), Focus: focus}
}

func TestSelectBest_Exclusion(t *testing.T) {
	only := []catalog.Item{item("w1", 30, "Legs")}
	assert.Nil(t, SelectBest(only, []string{"w1"}, nil, nil, nil, nil))
}

func TestSelectBest_DurationBound(t *testing.T) {
	long := []catalog.Item{item("w1", 50, "Legs")}
	assert.Nil(t, SelectBest(long, nil, nil, nil, nil, catalog.Minutes(30)))

	got := SelectBest(long, nil, nil, nil, nil, catalog.Minutes(60))
	require.NotNil(t, got)
	assert.Equal(t, "w1", got.ID)
}

func TestSelectBest_UnknownDurationPasses(t *testing.T) {
	unknown := []catalog.Item{{ID: "w1", Title: "Mystery"}}
	got := SelectBest(unknown, nil, nil, nil, catalog.Minutes(35), catalog.Minutes(40))
	require.NotNil(t, got)
	assert.Equal(t, "w1", got.ID)
}

func TestSelectBest_SkipsPlaceholders(t *testing.T) {
	assert.Nil(t, SelectBest([]catalog.Item{catalog.RestPlaceholder(), catalog.ErrorPlaceholder("x")}, nil, nil, nil, nil, nil))
}

func TestSelectBest_PrefersVariety(t *testing.T) {
	candidates := []catalog.Item{
		item("legs", 30, "Legs", "Glutes"),
		item("arms", 30, "Arms"),
	}
	got := SelectBest(candidates, nil, []string{"legs"}, []string{"Core"}, nil, nil)
	require.NotNil(t, got)
	assert.Equal(t, "arms", got.ID, "focus overlap is case-insensitive")

	// Everything overlaps: most relevant wins.
	got = SelectBest(candidates, nil, []string{"Legs"}, []string{"ARMS"}, nil, nil)
	require.NotNil(t, got)
	assert.Equal(t, "legs", got.ID)
}
