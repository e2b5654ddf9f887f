package planner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/fixtures"
	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/shared"

	"github.com/google/uuid"
)

// WorkoutSearcher finds catalog items for a free-text query. It never fails;
// infrastructure problems come back as placeholder items.
type WorkoutSearcher interface {
	Search(ctx context.Context, query string, minDuration, maxDuration *int) []catalog.Item
}

// Generators holds one text generator per pipeline stage. Each is built once
// with the stage's model configuration and reused for every request.
type Generators struct {
	Skeleton llm.TextGenerator
	Assembly llm.TextGenerator
	Query    llm.TextGenerator
	Intent   llm.TextGenerator
}

// Planner builds weekly plans and adjusts single days.
type Planner struct {
	gens        Generators
	search      WorkoutSearcher
	fixtures    fixtures.Source
	log         *logger.Logger
	concurrency int
	now         func() time.Time
}

// NewPlanner creates a new Planner instance.
func NewPlanner(gens Generators, search WorkoutSearcher, fixtureSrc fixtures.Source, log *logger.Logger, concurrency int) *Planner {
	if fixtureSrc == nil {
		fixtureSrc = fixtures.None{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Planner{
		gens:        gens,
		search:      search,
		fixtures:    fixtureSrc,
		log:         log.With("service", "Planner"),
		concurrency: concurrency,
		now:         time.Now,
	}
}

// GeneratePlan runs skeleton, retrieval, assembly and enrichment for goal.
// It always returns a valid week: any stage failure yields FallbackPlan.
// The returned metas cover every generation call that was made.
func (p *Planner) GeneratePlan(ctx context.Context, goal string) (*WeeklyPlan, []shared.AgentMeta) {
	if plan, ok := p.fixturePlan(goal); ok {
		return plan, nil
	}

	var metas []shared.AgentMeta

	sk, meta, err := p.runSkeleton(ctx, goal)
	metas = append(metas, meta)
	if err != nil {
		return p.fail("skeleton", goal, err), metas
	}
	p.log.Debug("skeleton generated", "goal", goal, "weekly_goal", sk.WeeklyGoal)

	retrieved := p.runRetrieval(ctx, sk)

	assembled, meta, err := p.runAssembly(ctx, goal, sk, retrieved)
	metas = append(metas, meta)
	if err != nil {
		return p.fail("assembly", goal, err), metas
	}

	schedule, focus := enrich(assembled, retrieved)
	if focus == "" {
		focus = sk.WeeklyGoal
	}
	plan := &WeeklyPlan{
		ID:          uuid.NewString(),
		Goal:        goal,
		WeeklyFocus: focus,
		Status:      StatusGenerated,
		Schedule:    schedule,
		GeneratedAt: p.now().UTC(),
	}
	if err := plan.Validate(); err != nil {
		return p.fail("enrichment", goal, err), metas
	}

	p.log.Info("plan generated", "plan_id", plan.ID, "goal", goal, "tokens", shared.SumUsage(metas).TotalTokens)
	return plan, metas
}

func (p *Planner) fail(stage, goal string, err error) *WeeklyPlan {
	p.log.Error("plan generation failed, returning fallback", "stage", stage, "goal", goal, "error", err)
	reason := stage + " failed"
	if errors.Is(err, llm.ErrRetryExhausted) {
		reason = stage + " rate limited"
	}
	return FallbackPlan(goal, reason, p.now())
}

func (p *Planner) fixturePlan(goal string) (*WeeklyPlan, bool) {
	data, ok := p.fixtures.Lookup(fixtures.Plan)
	if !ok {
		return nil, false
	}
	var plan WeeklyPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		p.log.Error("plan fixture is not valid JSON, generating live", "error", err)
		return nil, false
	}
	for i := range plan.Schedule {
		plan.Schedule[i].DayName = dayName(plan.Schedule[i].Day)
	}
	if err := plan.Validate(); err != nil {
		p.log.Error("plan fixture is inconsistent, generating live", "error", err)
		return nil, false
	}
	plan.ID = uuid.NewString()
	plan.Goal = goal
	plan.Status = StatusFixture
	plan.GeneratedAt = p.now().UTC()
	return &plan, true
}
