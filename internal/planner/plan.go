package planner

import (
	"errors"
	"fmt"
	"time"

	"ai-fitness-coach/internal/catalog"

	"github.com/google/uuid"
)

// PlanStatus records how a weekly plan was produced.
type PlanStatus string

const (
	StatusGenerated PlanStatus = "GENERATED"
	StatusFallback  PlanStatus = "FALLBACK"
	StatusFixture   PlanStatus = "FIXTURE"
	StatusAdjusted  PlanStatus = "ADJUSTED"
)

const daysInWeek = 7

// DayNames are the short labels for day numbers 1..7.
var DayNames = [daysInWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var (
	ErrDayNotFound      = errors.New("day not found in plan")
	ErrInvalidPlan      = errors.New("invalid weekly plan")
	ErrAdjustmentFailed = errors.New("adjustment did not succeed")
)

// PlanDay is one day of the week. A day is a rest day exactly when it has
// no workout ID.
type PlanDay struct {
	Day       int           `json:"day"`
	DayName   string        `json:"day_name"`
	WorkoutID *string       `json:"workout_id"`
	Activity  string        `json:"activity"`
	IsRest    bool          `json:"is_rest"`
	Notes     string        `json:"notes,omitempty"`
	Details   *catalog.Item `json:"workout_details,omitempty"`
}

// WeeklyPlan is a seven day schedule.
type WeeklyPlan struct {
	ID          string     `json:"id"`
	Goal        string     `json:"goal"`
	WeeklyFocus string     `json:"weekly_focus"`
	Status      PlanStatus `json:"status"`
	Schedule    []PlanDay  `json:"schedule"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Day returns the entry for day number n.
func (p *WeeklyPlan) Day(n int) (*PlanDay, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Schedule {
		if p.Schedule[i].Day == n {
			return &p.Schedule[i], true
		}
	}
	return nil, false
}

// Validate checks the week has days 1..7 exactly once and every day's rest
// flag agrees with its workout ID.
func (p *WeeklyPlan) Validate() error {
	if len(p.Schedule) != daysInWeek {
		return fmt.Errorf("%w: expected %d days, got %d", ErrInvalidPlan, daysInWeek, len(p.Schedule))
	}
	seen := make(map[int]bool, daysInWeek)
	for _, d := range p.Schedule {
		if d.Day < 1 || d.Day > daysInWeek {
			return fmt.Errorf("%w: day number %d out of range", ErrInvalidPlan, d.Day)
		}
		if seen[d.Day] {
			return fmt.Errorf("%w: day %d appears twice", ErrInvalidPlan, d.Day)
		}
		seen[d.Day] = true
		if d.IsRest != (d.WorkoutID == nil) {
			return fmt.Errorf("%w: day %d rest flag disagrees with workout id", ErrInvalidPlan, d.Day)
		}
	}
	return nil
}

// Clone copies the plan so a schedule edit does not touch the original.
// Item details are shared.
func (p *WeeklyPlan) Clone() *WeeklyPlan {
	c := *p
	c.Schedule = append([]PlanDay(nil), p.Schedule...)
	return &c
}

// WorkoutIDs returns the workout IDs scheduled on every day except skip.
func (p *WeeklyPlan) WorkoutIDs(skip int) []string {
	var ids []string
	for _, d := range p.Schedule {
		if d.Day != skip && d.WorkoutID != nil {
			ids = append(ids, *d.WorkoutID)
		}
	}
	return ids
}

// FocusOf returns the focus tags of day n, or nil for a missing or rest day.
func (p *WeeklyPlan) FocusOf(n int) []string {
	d, ok := p.Day(n)
	if !ok || d.Details == nil {
		return nil
	}
	return d.Details.Focus
}

// FallbackPlan is the all-rest week returned whenever generation fails.
func FallbackPlan(goal, reason string, now time.Time) *WeeklyPlan {
	schedule := make([]PlanDay, daysInWeek)
	for i := range schedule {
		schedule[i] = restDay(i+1, "Rest", "")
	}
	focus := "General Fitness (Fallback)"
	if reason != "" {
		focus += ": " + reason
	}
	return &WeeklyPlan{
		ID:          uuid.NewString(),
		Goal:        goal,
		WeeklyFocus: focus,
		Status:      StatusFallback,
		Schedule:    schedule,
		GeneratedAt: now.UTC(),
	}
}

func restDay(day int, activity, notes string) PlanDay {
	return PlanDay{
		Day:      day,
		DayName:  dayName(day),
		Activity: activity,
		IsRest:   true,
		Notes:    notes,
	}
}

func workoutDay(day int, item catalog.Item, notes string) PlanDay {
	id := item.ID
	return PlanDay{
		Day:       day,
		DayName:   dayName(day),
		WorkoutID: &id,
		Activity:  item.Name(),
		Notes:     notes,
		Details:   &item,
	}
}

func dayName(n int) string {
	if n < 1 || n > daysInWeek {
		return ""
	}
	return DayNames[n-1]
}
