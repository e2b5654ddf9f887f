package planner

import (
	"strings"

	"ai-fitness-coach/internal/catalog"
)

// AdjustmentStage names how far the relaxation ladder went before a
// selection was made.
type AdjustmentStage string

const (
	StageSelected        AdjustmentStage = "SELECTED"
	StageRelaxedSelected AdjustmentStage = "RELAXED_SELECTED"
	StageRelaxedFurther  AdjustmentStage = "RELAXED_FURTHER"
	StageRested          AdjustmentStage = "RESTED"
	StageDayNotFound     AdjustmentStage = "DAY_NOT_FOUND"
)

// SelectBest picks a candidate for one day. Placeholders, excluded IDs and
// items outside the duration bounds are dropped; items with unknown
// duration pass any bound. Among the rest it prefers an item whose focus
// does not overlap the neighbouring days, falling back to the first
// surviving candidate. Returns nil when nothing survives.
func SelectBest(candidates []catalog.Item, excludedIDs []string, prevFocus, nextFocus []string, minDuration, maxDuration *int) *catalog.Item {
	filtered := filterCandidates(candidates, excludedIDs, minDuration, maxDuration)
	if len(filtered) == 0 {
		return nil
	}
	for _, c := range filtered {
		if !focusOverlaps(c.Focus, prevFocus) && !focusOverlaps(c.Focus, nextFocus) {
			return &c
		}
	}
	first := filtered[0]
	return &first
}

func filterCandidates(candidates []catalog.Item, excludedIDs []string, minDuration, maxDuration *int) []catalog.Item {
	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	var out []catalog.Item
	for _, c := range candidates {
		if c.IsPlaceholder() {
			continue
		}
		if _, ok := excluded[c.ID]; ok {
			continue
		}
		if c.DurationMins != nil {
			if minDuration != nil && *c.DurationMins < *minDuration {
				continue
			}
			if maxDuration != nil && *c.DurationMins > *maxDuration {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func focusOverlaps(a, b []string) bool {
	for _, x := range a {
		x = strings.TrimSpace(x)
		for _, y := range b {
			if strings.EqualFold(x, strings.TrimSpace(y)) {
				return true
			}
		}
	}
	return false
}
