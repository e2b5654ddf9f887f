package app

import (
	"context"
	"fmt"

	"ai-fitness-coach/internal/catalog"
	"ai-fitness-coach/internal/ghost"
	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/shared"
)

// IngestReport counts what an ingestion run did.
type IngestReport struct {
	Fetched int
	Saved   int
	Skipped int
	Failed  int
	Removed int
}

// IngestWorkouts syncs the catalog with Ghost. Posts that are unchanged
// since the last run are skipped unless force is set; items whose post no
// longer exists are removed.
func (a *App) IngestWorkouts(ctx context.Context, force bool) (*IngestReport, error) {
	posts, err := a.ghostClient.FetchPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workouts from ghost: %w", err)
	}
	report := &IngestReport{Fetched: len(posts)}
	a.log.Info("fetched workout posts", "count", len(posts))

	if report.Removed, err = a.removeOrphans(ctx, posts); err != nil {
		return nil, err
	}

	processed := 0
	for _, post := range posts {
		if !force {
			current, err := a.catalogRepo.IsCurrent(ctx, post.ID, post.UpdatedAt)
			if err != nil {
				return nil, err
			}
			if current {
				report.Skipped++
				continue
			}
		}

		if processed > 0 && a.ingestDelay > 0 {
			if err := llm.SleepContext(ctx, a.ingestDelay); err != nil {
				return report, err
			}
		}
		processed++

		if err := ProcessAndSaveWorkout(ctx, a.extractor, a.catalogRepo, a.metricsStore, post); err != nil {
			a.log.Error("failed to process workout", "post_id", post.ID, "title", post.Title, "error", err)
			report.Failed++
			continue
		}
		report.Saved++
		a.log.Info("workout indexed", "post_id", post.ID, "title", post.Title)
	}

	return report, nil
}

func (a *App) removeOrphans(ctx context.Context, posts []ghost.Post) (int, error) {
	live := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		live[p.ID] = struct{}{}
	}
	items, err := a.catalogRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list catalog: %w", err)
	}

	removed := 0
	for _, it := range items {
		if _, ok := live[it.ID]; ok {
			continue
		}
		if err := a.catalogRepo.Delete(ctx, it.ID); err != nil {
			return removed, fmt.Errorf("failed to delete orphaned workout %s: %w", it.ID, err)
		}
		a.log.Info("removed workout no longer in ghost", "id", it.ID, "title", it.Title)
		removed++
	}
	return removed, nil
}

// ProcessAndSaveWorkout extracts one post, embeds it and stores it.
func ProcessAndSaveWorkout(
	ctx context.Context,
	extractor *catalog.Extractor,
	catalogRepo *catalog.Repository,
	metricsStore *metrics.Store,
	post ghost.Post,
) error {
	res, err := extractor.ExtractWorkout(ctx, catalog.PostData{
		ID:        post.ID,
		Title:     post.Title,
		UpdatedAt: post.UpdatedAt,
		HTML:      post.HTML,
	})
	if err != nil {
		// A failed parse has still spent tokens.
		if res.Meta.AgentName != "" {
			_ = metricsStore.RecordMeta(ctx, res.Meta)
		}
		return fmt.Errorf("failed to extract workout: %w", err)
	}

	item := res.Item
	if item.URL == "" {
		item.URL = post.URL
	}
	if item.Thumbnail == "" {
		item.Thumbnail = post.FeatureImage
	}

	_, embeddingMeta, err := extractor.ProcessAndSaveEmbedding(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to process and save embedding: %w", err)
	}

	if err := catalogRepo.Save(ctx, item); err != nil {
		return fmt.Errorf("failed to save workout: %w", err)
	}

	for _, m := range []shared.AgentMeta{res.Meta, embeddingMeta} {
		if err := metricsStore.RecordMeta(ctx, m); err != nil {
			return fmt.Errorf("failed to record metrics: %w", err)
		}
	}
	return nil
}
