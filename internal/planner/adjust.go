package planner

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/shared"
)

//go:embed query_prompt.md
var queryPrompt string

var queryTmpl = template.Must(template.New("query").Parse(queryPrompt))

// UnsupportedIntentMessage is the reply to anything but an adjustment request.
const UnsupportedIntentMessage = "I can currently only help with adjusting your workout plan (e.g., 'make it shorter', 'too hard'). Other features coming soon!"

const dayNotFoundMessage = "I couldn't find that day in your plan."

// AdjustmentResult describes the replacement chosen for one day.
type AdjustmentResult struct {
	Day              int                `json:"day"`
	Success          bool               `json:"success"`
	NewWorkoutID     *string            `json:"new_workout_id"`
	NewActivityTitle string             `json:"new_activity_title"`
	IsRest           bool               `json:"is_rest"`
	Summary          string             `json:"summary"`
	AgentResponse    string             `json:"agent_response"`
	Workout          *catalog.Item      `json:"workout,omitempty"`
	Stage            AdjustmentStage    `json:"stage"`
	Constraint       DurationConstraint `json:"constraint"`
	Query            string             `json:"query,omitempty"`
}

// ChatResult is the reply to one chat message.
type ChatResult struct {
	Intent       Intent            `json:"intent"`
	Adjustment   *AdjustmentResult `json:"adjustment,omitempty"`
	ResponseText string            `json:"response"`
}

// Chat classifies message and, for adjustment requests, adjusts the day.
// The plan is never modified; callers merge with ApplyAdjustment.
func (p *Planner) Chat(ctx context.Context, message string, day int, plan *WeeklyPlan) (*ChatResult, []shared.AgentMeta) {
	intent, meta := p.ClassifyIntent(ctx, message, NewDayContext(plan, day))
	metas := []shared.AgentMeta{meta}

	if intent != IntentAdjust {
		return &ChatResult{Intent: intent, ResponseText: UnsupportedIntentMessage}, metas
	}

	res, adjustMetas := p.AdjustDay(ctx, message, day, plan)
	return &ChatResult{Intent: intent, Adjustment: res, ResponseText: res.AgentResponse}, append(metas, adjustMetas...)
}

// AdjustDay picks a replacement workout for one day. It only fails when the
// day does not exist; when no workout fits, the day becomes a rest day.
func (p *Planner) AdjustDay(ctx context.Context, message string, day int, plan *WeeklyPlan) (*AdjustmentResult, []shared.AgentMeta) {
	target, ok := plan.Day(day)
	if !ok {
		return &AdjustmentResult{
			Day:           day,
			Stage:         StageDayNotFound,
			AgentResponse: dayNotFoundMessage,
		}, nil
	}

	excluded := plan.WorkoutIDs(day)
	if target.WorkoutID != nil {
		excluded = append(excluded, *target.WorkoutID)
	}
	prevFocus, nextFocus := plan.FocusOf(day-1), plan.FocusOf(day+1)

	var current *int
	var focus, equipment []string
	if target.Details != nil {
		current = target.Details.DurationMins
		focus = target.Details.Focus
		equipment = target.Details.Equipment
	}
	constraint := ParseDurationRequest(message, current)

	avoid := make([]string, 0, len(prevFocus)+len(nextFocus))
	avoid = append(append(avoid, prevFocus...), nextFocus...)
	query, meta := p.buildQuery(ctx, message, target, focus, equipment, constraint, avoid)
	metas := []shared.AgentMeta{meta}

	sel, stage := p.selectWithRelaxation(ctx, query, focus, excluded, prevFocus, nextFocus, constraint)

	res := &AdjustmentResult{
		Day:        day,
		Success:    true,
		Stage:      stage,
		Constraint: constraint,
		Query:      query,
	}
	if sel == nil {
		res.IsRest = true
		res.NewActivityTitle = "Rest Day"
		res.Summary = "Converted to a rest day"
		res.AgentResponse = fmt.Sprintf("Sorry, I couldn't find a suitable replacement workout, so I've turned day %d into a rest day.", day)
		p.log.Info("adjustment fell back to rest", "day", day, "query", query)
		return res, metas
	}

	sel.URL = catalog.NormalizeURL(sel.URL)
	sel.Thumbnail = catalog.NormalizeURL(sel.Thumbnail)
	id := sel.ID
	res.NewWorkoutID = &id
	res.NewActivityTitle = sel.Name()
	res.Workout = sel
	res.Summary = describeChange(current, sel.DurationMins, sel.Name())
	res.AgentResponse = adjustmentResponse(stage, constraint, sel)

	p.log.Info("day adjusted", "day", day, "workout_id", id, "stage", stage)
	return res, metas
}

// selectWithRelaxation loosens the search step by step: full constraints,
// then no duration bounds, then a broader query taking any unused workout.
func (p *Planner) selectWithRelaxation(ctx context.Context, query string, focus, excluded, prevFocus, nextFocus []string, c DurationConstraint) (*catalog.Item, AdjustmentStage) {
	candidates := p.search.Search(ctx, query, c.Min, c.Max)
	if sel := SelectBest(candidates, excluded, prevFocus, nextFocus, c.Min, c.Max); sel != nil {
		return sel, StageSelected
	}

	if !c.IsZero() {
		candidates = p.search.Search(ctx, query, nil, nil)
	}
	if sel := SelectBest(candidates, excluded, prevFocus, nextFocus, nil, nil); sel != nil {
		return sel, StageRelaxedSelected
	}

	broad := "full body workout"
	if len(focus) > 0 {
		broad = strings.Join(focus, " ") + " workout"
	}
	if remaining := filterCandidates(p.search.Search(ctx, broad, nil, nil), excluded, nil, nil); len(remaining) > 0 {
		sel := remaining[0]
		return &sel, StageRelaxedFurther
	}

	return nil, StageRested
}

func (p *Planner) buildQuery(ctx context.Context, message string, target *PlanDay, focus, equipment []string, c DurationConstraint, avoid []string) (string, shared.AgentMeta) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "QueryBuilder"}

	fallback := strings.TrimSpace(target.Activity)
	if fallback == "" || target.IsRest {
		fallback = message
	}

	data := struct {
		Message    string
		Activity   string
		Focus      string
		Constraint string
		Equipment  string
		AvoidFocus string
	}{
		Message:    message,
		Activity:   target.Activity,
		Focus:      strings.Join(focus, ", "),
		Constraint: c.String(),
		Equipment:  strings.Join(equipment, ", "),
		AvoidFocus: strings.Join(avoid, ", "),
	}
	var buf bytes.Buffer
	if err := queryTmpl.Execute(&buf, data); err != nil {
		p.log.Error("failed to build query prompt", "error", err)
		return fallback, meta
	}

	resp, err := p.gens.Query.GenerateContent(ctx, buf.String())
	if err != nil {
		p.log.Warn("query generation failed, using current activity", "error", err)
		return fallback, meta
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	if q := firstLine(resp.Content); q != "" {
		return q, meta
	}
	return fallback, meta
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'`")
		if line != "" {
			return line
		}
	}
	return ""
}

func describeChange(current, next *int, title string) string {
	if next == nil {
		return "Switched to " + title
	}
	if current != nil {
		switch {
		case *next < *current:
			return fmt.Sprintf("Switched to a shorter workout: %s (%d min, was %d)", title, *next, *current)
		case *next > *current:
			return fmt.Sprintf("Switched to a longer workout: %s (%d min, was %d)", title, *next, *current)
		}
	}
	return fmt.Sprintf("Switched to %s (%d min)", title, *next)
}

func adjustmentResponse(stage AdjustmentStage, c DurationConstraint, sel *catalog.Item) string {
	name := sel.Name()
	if sel.DurationMins != nil {
		name = fmt.Sprintf("%s (%d min)", name, *sel.DurationMins)
	}
	switch stage {
	case StageRelaxedSelected:
		return fmt.Sprintf("I couldn't find a workout %s, so I picked the closest match: %s.", c, name)
	case StageRelaxedFurther:
		return fmt.Sprintf("Nothing matched closely, so here's a different session to keep you moving: %s.", name)
	default:
		return fmt.Sprintf("No problem! I've swapped it for %s.", name)
	}
}

// ApplyAdjustment returns a copy of plan with res merged into its day.
func ApplyAdjustment(plan *WeeklyPlan, res *AdjustmentResult) (*WeeklyPlan, error) {
	if res == nil || !res.Success {
		return nil, ErrAdjustmentFailed
	}
	out := plan.Clone()
	d, ok := out.Day(res.Day)
	if !ok {
		return nil, fmt.Errorf("%w: day %d", ErrDayNotFound, res.Day)
	}

	notes := res.Summary
	if res.IsRest || res.Workout == nil {
		title := res.NewActivityTitle
		if title == "" {
			title = "Rest Day"
		}
		*d = restDay(res.Day, title, notes)
	} else {
		*d = workoutDay(res.Day, *res.Workout, notes)
	}
	out.Status = StatusAdjusted

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
