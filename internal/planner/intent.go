package planner

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/shared"
)

//go:embed intent_prompt.md
var intentPrompt string

var intentTmpl = template.Must(template.New("intent").Parse(intentPrompt))

type Intent string

const (
	IntentAdjust     Intent = "ADJUST_WORKOUT"
	IntentExplain    Intent = "EXPLAIN_WORKOUT"
	IntentMotivation Intent = "MOTIVATION"
	IntentOther      Intent = "OTHER"
)

// DayContext describes the day the user is looking at.
type DayContext struct {
	Day      int
	Title    string
	Duration *int
	Focus    []string
}

// NewDayContext summarises day n of plan. Missing days yield an empty context.
func NewDayContext(plan *WeeklyPlan, n int) DayContext {
	dc := DayContext{Day: n}
	d, ok := plan.Day(n)
	if !ok {
		return dc
	}
	dc.Title = d.Activity
	if d.Details != nil {
		dc.Duration = d.Details.DurationMins
		dc.Focus = d.Details.Focus
	}
	return dc
}

type intentResponse struct {
	Intent string `json:"intent"`
}

// ClassifyIntent asks the model what the message wants. Any failure yields
// IntentOther, which never mutates state.
func (p *Planner) ClassifyIntent(ctx context.Context, message string, dc DayContext) (Intent, shared.AgentMeta) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Intent"}

	data := struct {
		Message  string
		Day      int
		Title    string
		Duration int
		Focus    string
	}{Message: message, Day: dc.Day, Title: dc.Title, Focus: strings.Join(dc.Focus, ", ")}
	if dc.Duration != nil {
		data.Duration = *dc.Duration
	}

	var buf bytes.Buffer
	if err := intentTmpl.Execute(&buf, data); err != nil {
		p.log.Error("failed to build intent prompt", "error", err)
		return IntentOther, meta
	}

	resp, err := p.gens.Intent.GenerateContent(ctx, buf.String())
	if err != nil {
		p.log.Warn("intent classification failed", "error", err)
		return IntentOther, meta
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	if parsed, err := llm.ExtractJSON[intentResponse](resp.Content, nil); err == nil {
		return ParseIntent(parsed.Intent), meta
	}
	return ParseIntent(resp.Content), meta
}

// ParseIntent maps loose model output onto an Intent.
func ParseIntent(raw string) Intent {
	s := strings.ToUpper(raw)
	switch {
	case strings.Contains(s, "ADJUST"):
		return IntentAdjust
	case strings.Contains(s, "EXPLAIN"):
		return IntentExplain
	case strings.Contains(s, "MOTIVATION"):
		return IntentMotivation
	default:
		return IntentOther
	}
}
