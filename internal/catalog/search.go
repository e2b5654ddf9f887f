package catalog

import (
	"context"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/logger"
)

const defaultSearchLimit = 3

// VectorSearcher ranks stored embeddings against a query vector.
type VectorSearcher interface {
	FindSimilar(ctx context.Context, query []float32, limit int, filter DurationFilter) ([]ScoredID, error)
}

// ItemReader loads items by ID, preserving order.
type ItemReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
}

// Searcher turns a free-text query into ranked catalog projections. It never
// fails: infrastructure errors become an error placeholder and an empty
// result becomes a rest placeholder.
type Searcher struct {
	embedGen llm.EmbeddingGenerator
	vectors  VectorSearcher
	items    ItemReader
	limit    int
	log      *logger.Logger
}

func NewSearcher(embedGen llm.EmbeddingGenerator, vectors VectorSearcher, items ItemReader, log *logger.Logger) *Searcher {
	return &Searcher{
		embedGen: embedGen,
		vectors:  vectors,
		items:    items,
		limit:    defaultSearchLimit,
		log:      log.With("service", "Searcher"),
	}
}

// Search returns at most three items ordered by similarity, never an empty slice.
func (s *Searcher) Search(ctx context.Context, query string, minDuration, maxDuration *int) []Item {
	vec, err := s.embedGen.GenerateEmbedding(ctx, query)
	if err != nil || len(vec) == 0 {
		s.log.Warn("embedding failed, returning placeholder", "query", query, "error", err)
		reason := "empty embedding"
		if err != nil {
			reason = err.Error()
		}
		return []Item{ErrorPlaceholder(reason)}
	}

	hits, err := s.vectors.FindSimilar(ctx, vec, s.limit, DurationFilter{Min: minDuration, Max: maxDuration})
	if err != nil {
		s.log.Error("similarity search failed", "query", query, "error", err)
		return []Item{ErrorPlaceholder(err.Error())}
	}
	if len(hits) == 0 {
		return []Item{RestPlaceholder()}
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	items, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		s.log.Error("failed to load search hits", "query", query, "error", err)
		return []Item{ErrorPlaceholder(err.Error())}
	}
	if len(items) == 0 {
		return []Item{RestPlaceholder()}
	}

	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item.Projection()
	}
	return out
}
