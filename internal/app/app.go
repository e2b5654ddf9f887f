package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/clipper"
	"ai-fitness-coach/internal/ghost"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/planstore"
	"ai-fitness-coach/internal/shared"
)

// ErrNoPlan is returned by Chat when the user has not generated a plan yet.
var ErrNoPlan = planstore.ErrNoPlan

// App holds the application's dependencies.
type App struct {
	ghostClient  ghost.Client
	extractor    *catalog.Extractor
	catalogRepo  *catalog.Repository
	metricsStore *metrics.Store
	coach        *planner.Planner
	plans        planstore.Store
	clipper      *clipper.Clipper
	log          *logger.Logger
	observers    []func(shared.AgentMeta)

	// Pause between extraction calls to stay under free tier request limits.
	ingestDelay time.Duration
}

// NewApp creates and initializes a new App instance.
func NewApp(
	ghostClient ghost.Client,
	extractor *catalog.Extractor,
	catalogRepo *catalog.Repository,
	metricsStore *metrics.Store,
	coach *planner.Planner,
	plans planstore.Store,
	workoutClipper *clipper.Clipper,
	log *logger.Logger,
) *App {
	return &App{
		ghostClient:  ghostClient,
		extractor:    extractor,
		catalogRepo:  catalogRepo,
		metricsStore: metricsStore,
		coach:        coach,
		plans:        plans,
		clipper:      workoutClipper,
		log:          log.With("service", "App"),
		ingestDelay:  4 * time.Second,
	}
}

// SetIngestDelay changes the pause between extraction calls.
func (a *App) SetIngestDelay(d time.Duration) {
	a.ingestDelay = d
}

// GeneratePlanForUser returns the user's current plan, generating and
// storing a new one when force is set, no plan exists, the goal changed or
// the stored plan is a fallback.
func (a *App) GeneratePlanForUser(ctx context.Context, userID, goal string, force bool) (*planner.WeeklyPlan, error) {
	existing, err := a.plans.Latest(ctx, userID)
	if err != nil && !errors.Is(err, planstore.ErrNoPlan) {
		a.log.Warn("failed to load stored plan, generating a new one", "user_id", userID, "error", err)
	}
	if err != nil {
		existing = nil
	}

	if !force && existing != nil && reusable(existing, goal) {
		a.log.Debug("reusing stored plan", "user_id", userID, "plan_id", existing.ID)
		return existing, nil
	}
	if goal == "" && existing != nil {
		goal = existing.Goal
	}
	if goal == "" {
		goal = "General Fitness"
	}

	plan, metas := a.coach.GeneratePlan(ctx, goal)
	a.recordMetas(ctx, metas)

	if err := a.plans.Save(ctx, userID, plan); err != nil {
		return plan, fmt.Errorf("failed to save plan: %w", err)
	}
	return plan, nil
}

func reusable(p *planner.WeeklyPlan, goal string) bool {
	if p.Status == planner.StatusFallback {
		return false
	}
	return goal == "" || goal == p.Goal
}

// CurrentPlan returns the user's stored plan or ErrNoPlan.
func (a *App) CurrentPlan(ctx context.Context, userID string) (*planner.WeeklyPlan, error) {
	return a.plans.Latest(ctx, userID)
}

// ChatReply is the outcome of one chat message. Plan is the stored plan
// after any adjustment was applied.
type ChatReply struct {
	Result  *planner.ChatResult
	Plan    *planner.WeeklyPlan
	Updated bool
}

// Chat routes a message about one day of the user's current plan. A
// successful adjustment is merged into the plan and persisted.
func (a *App) Chat(ctx context.Context, userID string, day int, message string) (*ChatReply, error) {
	plan, err := a.plans.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, metas := a.coach.Chat(ctx, message, day, plan)
	a.recordMetas(ctx, metas)

	reply := &ChatReply{Result: res, Plan: plan}
	if res.Adjustment == nil || !res.Adjustment.Success {
		return reply, nil
	}

	updated, err := planner.ApplyAdjustment(plan, res.Adjustment)
	if err != nil {
		return nil, fmt.Errorf("failed to apply adjustment: %w", err)
	}
	if err := a.plans.Save(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("failed to save adjusted plan: %w", err)
	}
	reply.Plan = updated
	reply.Updated = true
	return reply, nil
}

// ClipURL imports a workout page into Ghost. It is indexed on the next ingest.
func (a *App) ClipURL(ctx context.Context, url string) (*clipper.ClipResult, error) {
	res, err := a.clipper.ClipURL(ctx, url)
	if err != nil {
		return nil, err
	}
	a.recordMetas(ctx, []shared.AgentMeta{res.Meta})
	return res, nil
}

// IndexClip makes a clipped workout searchable without waiting for the next
// ingest. The item is keyed by the new post so ingestion treats it as current.
func (a *App) IndexClip(ctx context.Context, res *clipper.ClipResult) error {
	item := res.Item
	item.ID = res.Post.ID
	item.UpdatedAt = res.Post.UpdatedAt

	_, meta, err := a.extractor.ProcessAndSaveEmbedding(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to embed clipped workout: %w", err)
	}
	if err := a.catalogRepo.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to save clipped workout: %w", err)
	}
	a.recordMetas(ctx, []shared.AgentMeta{meta})
	return nil
}

// UsageReport is what the metrics command shows.
type UsageReport struct {
	Daily  []metrics.DailyUsage
	Agents []metrics.AgentUsage
}

func (a *App) Usage(ctx context.Context, days int) (*UsageReport, error) {
	daily, err := a.metricsStore.GetDailyUsage(ctx, days)
	if err != nil {
		return nil, err
	}
	agents, err := a.metricsStore.GetAgentUsage(ctx, days)
	if err != nil {
		return nil, err
	}
	return &UsageReport{Daily: daily, Agents: agents}, nil
}

// CleanupMetrics removes metrics older than the given number of days.
func (a *App) CleanupMetrics(ctx context.Context, olderThanDays int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, olderThanDays)
}

// OnAgentMeta registers fn to see every agent call the app records. Register
// observers before serving requests.
func (a *App) OnAgentMeta(fn func(shared.AgentMeta)) {
	a.observers = append(a.observers, fn)
}

func (a *App) recordMetas(ctx context.Context, metas []shared.AgentMeta) {
	for _, m := range metas {
		if err := a.metricsStore.RecordMeta(ctx, m); err != nil {
			a.log.Warn("failed to record metrics", "agent", m.AgentName, "error", err)
		}
		for _, fn := range a.observers {
			fn(m)
		}
	}
}
