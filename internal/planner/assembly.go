package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"
	"time"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/shared"
)

//go:embed assembly_prompt.md
var assemblyPrompt string

var assemblyTmpl = template.Must(template.New("assembly").Parse(assemblyPrompt))

type assembledDay struct {
	Day       int     `json:"day"`
	DayName   string  `json:"day_name"`
	WorkoutID *string `json:"workout_id"`
	Activity  string  `json:"activity"`
	IsRest    bool    `json:"is_rest"`
	Notes     string  `json:"notes"`
}

type assembledPlan struct {
	WeeklyFocus string         `json:"weekly_focus"`
	Schedule    []assembledDay `json:"schedule"`
}

func validateAssembled(a assembledPlan) error {
	if len(a.Schedule) != daysInWeek {
		return fmt.Errorf("expected %d days, got %d", daysInWeek, len(a.Schedule))
	}
	seen := make(map[int]bool, daysInWeek)
	for _, d := range a.Schedule {
		if d.Day < 1 || d.Day > daysInWeek || seen[d.Day] {
			return fmt.Errorf("invalid or duplicate day number %d", d.Day)
		}
		seen[d.Day] = true
	}
	return nil
}

// scheduleEntry is the compact view of a retrieved day shown to the model.
type scheduleEntry struct {
	Day       int     `json:"day"`
	DayName   string  `json:"day_name"`
	Focus     string  `json:"focus"`
	WorkoutID *string `json:"workout_id"`
	Title     string  `json:"title,omitempty"`
	Duration  *int    `json:"duration_mins,omitempty"`
}

func (p *Planner) runAssembly(ctx context.Context, goal string, sk Skeleton, retrieved []RetrievedDay) (assembledPlan, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Assembler"}

	entries := make([]scheduleEntry, len(retrieved))
	for i, r := range retrieved {
		entries[i] = scheduleEntry{Day: r.Day, DayName: dayName(r.Day), Focus: r.Focus}
		if r.Selected != nil {
			id := r.Selected.ID
			entries[i].WorkoutID = &id
			entries[i].Title = r.Selected.Name()
			entries[i].Duration = r.Selected.DurationMins
		}
	}
	schedule, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return assembledPlan{}, meta, err
	}

	var buf bytes.Buffer
	data := struct {
		Goal       string
		WeeklyGoal string
		Schedule   string
	}{goal, sk.WeeklyGoal, string(schedule)}
	if err := assemblyTmpl.Execute(&buf, data); err != nil {
		return assembledPlan{}, meta, err
	}

	resp, err := p.gens.Assembly.GenerateContent(ctx, buf.String())
	if err != nil {
		return assembledPlan{}, meta, fmt.Errorf("assembly generation: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	plan, err := llm.ExtractJSON[assembledPlan](resp.Content, validateAssembled)
	if err != nil {
		return assembledPlan{}, meta, fmt.Errorf("assembly parse: %w", err)
	}
	sort.Slice(plan.Schedule, func(i, j int) bool { return plan.Schedule[i].Day < plan.Schedule[j].Day })
	return plan, meta, nil
}
