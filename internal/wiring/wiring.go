// Package wiring builds the object graph shared by the CLI and the server.
package wiring

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/clipper"
	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/fixtures"
	"ai-fitness-coach/internal/ghost"
	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/planstore"
)

// Plans cached in Redis live a little longer than the week they cover.
const redisPlanTTL = 8 * 24 * time.Hour

type Services struct {
	Config  *config.Config
	Log     *logger.Logger
	DB      *database.DB
	Gemini  *llm.GeminiClient
	App     *app.App
	Planner *planner.Planner
	History *planstore.SQLiteStore

	closers []func() error
}

// Build connects every backing service described by cfg. Callers must Close
// the result.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Services, error) {
	s := &Services{Config: cfg, Log: log}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s.DB = db
	s.closers = append(s.closers, db.Close)

	gemini, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Gemini = gemini
	s.closers = append(s.closers, gemini.Close)

	var embedGen llm.EmbeddingGenerator = gemini
	if cfg.EmbeddingCachePath != "" {
		cached, err := llm.NewCachedEmbeddingGenerator(gemini, cfg.EmbeddingCachePath, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		embedGen = cached
		// Runs before the client is closed.
		s.closers = append(s.closers, cached.SaveCache)
	}

	policy := llm.RetryPolicy{
		MaxRetries: cfg.LLMMaxRetries,
		BaseDelay:  cfg.LLMRetryBaseDelay,
		Multiplier: 2,
		Sleep:      llm.SleepContext,
	}
	stage := func(name string, mc llm.ModelConfig) llm.TextGenerator {
		return llm.NewRetryingGenerator(name, gemini.Generator(mc), policy, log)
	}

	// Groq is cheaper for the small classification and extraction calls.
	intentGen := stage("Intent", llm.IntentModel)
	extractorGen := stage("Extractor", llm.ExtractorModel)
	if cfg.GroqAPIKey != "" {
		intentGen = llm.NewRetryingGenerator("Intent", llm.NewGroqClient(cfg.GroqAPIKey, llm.IntentModel), policy, log)
		extractorGen = llm.NewRetryingGenerator("Extractor", llm.NewGroqClient(cfg.GroqAPIKey, llm.ExtractorModel), policy, log)
	}

	catalogRepo := catalog.NewRepository(db.SQL)
	vectors := catalog.NewVectorRepository(db.SQL)
	searcher := catalog.NewSearcher(embedGen, vectors, catalogRepo, log)

	s.Planner = planner.NewPlanner(planner.Generators{
		Skeleton: stage("Skeleton", llm.SkeletonModel),
		Assembly: stage("Assembler", llm.AssemblyModel),
		Query:    stage("QueryBuilder", llm.QueryModel),
		Intent:   intentGen,
	}, searcher, fixtures.NewSource(cfg.Fixtures, cfg.FixturesDir, log), log, cfg.RetrievalConcurrency)

	s.History = planstore.NewSQLiteStore(db.SQL)
	var plans planstore.Store = s.History
	if cfg.RedisAddr != "" {
		cache, err := planstore.NewRedisStore(ctx, cfg.RedisAddr, redisPlanTTL, log)
		if err != nil {
			// The SQLite store alone is enough to serve.
			log.Warn("redis unavailable, plans are served from sqlite only", "addr", cfg.RedisAddr, "error", err)
		} else {
			plans = planstore.NewLayered(s.History, cache, log)
			s.closers = append(s.closers, cache.Close)
		}
	}

	ghostClient := ghost.NewClient(cfg, cfg.GhostTag)
	extractor := catalog.NewExtractor(extractorGen, embedGen, vectors)

	s.App = app.NewApp(
		ghostClient,
		extractor,
		catalogRepo,
		metrics.NewStore(db.SQL),
		s.Planner,
		plans,
		clipper.NewClipper(ghostClient, extractor),
		log,
	)
	return s, nil
}

// DataDir is the directory holding the database and caches.
func (s *Services) DataDir() string {
	return filepath.Dir(s.Config.DatabasePath)
}

// Close releases resources in reverse order of acquisition.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Log.Warn("failed to close resource", "error", err)
		}
	}
	s.closers = nil
}
