package planner

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/shared"
)

//go:embed skeleton_prompt.md
var skeletonPrompt string

var skeletonTmpl = template.Must(template.New("skeleton").Parse(skeletonPrompt))

// SkeletonDay is the draft for one day before a workout is attached.
type SkeletonDay struct {
	Day         int    `json:"day"`
	Focus       string `json:"focus"`
	SearchQuery string `json:"search_query"`
}

// Skeleton is the goal-level draft of the week.
type Skeleton struct {
	WeeklyGoal string        `json:"weekly_goal"`
	Days       []SkeletonDay `json:"days"`
}

func validateSkeleton(s Skeleton) error {
	if len(s.Days) != daysInWeek {
		return fmt.Errorf("expected %d days, got %d", daysInWeek, len(s.Days))
	}
	seen := make(map[int]bool, daysInWeek)
	for _, d := range s.Days {
		if d.Day < 1 || d.Day > daysInWeek || seen[d.Day] {
			return fmt.Errorf("invalid or duplicate day number %d", d.Day)
		}
		seen[d.Day] = true
		if strings.TrimSpace(d.Focus) == "" && strings.TrimSpace(d.SearchQuery) == "" {
			return fmt.Errorf("day %d has neither focus nor query", d.Day)
		}
	}
	return nil
}

func (p *Planner) runSkeleton(ctx context.Context, goal string) (Skeleton, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Skeleton"}

	var buf bytes.Buffer
	if err := skeletonTmpl.Execute(&buf, struct{ Goal string }{goal}); err != nil {
		return Skeleton{}, meta, err
	}

	resp, err := p.gens.Skeleton.GenerateContent(ctx, buf.String())
	if err != nil {
		return Skeleton{}, meta, fmt.Errorf("skeleton generation: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	sk, err := llm.ExtractJSON[Skeleton](resp.Content, validateSkeleton)
	if err != nil {
		return Skeleton{}, meta, fmt.Errorf("skeleton parse: %w", err)
	}
	sort.Slice(sk.Days, func(i, j int) bool { return sk.Days[i].Day < sk.Days[j].Day })
	return sk, meta, nil
}
