package planner

import "strings"

const noMatchActivity = "Rest Day (no matching workout found)"

// enrich reconciles the assembled week with the retrieval results. The
// retrieved workout for a day number always replaces whatever the model
// wrote for that day; IDs emitted by the model are never trusted. A day the
// model scheduled as a workout with nothing retrieved becomes a rest day.
func enrich(assembled assembledPlan, retrieved []RetrievedDay) ([]PlanDay, string) {
	byDay := make(map[int]RetrievedDay, len(retrieved))
	for _, r := range retrieved {
		byDay[r.Day] = r
	}

	schedule := make([]PlanDay, 0, daysInWeek)
	for _, a := range assembled.Schedule {
		r := byDay[a.Day]
		if r.Selected != nil {
			schedule = append(schedule, workoutDay(a.Day, *r.Selected, a.Notes))
			continue
		}

		activity := strings.TrimSpace(a.Activity)
		if !a.IsRest || a.WorkoutID != nil {
			activity = noMatchActivity
		} else if activity == "" {
			activity = "Rest"
		}
		schedule = append(schedule, restDay(a.Day, activity, a.Notes))
	}

	focus := strings.TrimSpace(assembled.WeeklyFocus)
	return schedule, focus
}
