package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-fitness-coach/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeVectors struct {
	hits       []ScoredID
	err        error
	lastFilter DurationFilter
	lastLimit  int
}

func (f *fakeVectors) FindSimilar(ctx context.Context, query []float32, limit int, filter DurationFilter) ([]ScoredID, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	return f.hits, f.err
}

type fakeItems map[string]Item

func (f fakeItems) GetByIDs(ctx context.Context, ids []string) ([]Item, error) {
	var out []Item
	for _, id := range ids {
		if it, ok := f[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func TestSearcher_Search(t *testing.T) {
	items := fakeItems{
		"a": {ID: "a", Title: "A", Description: strings.Repeat("x", 500), UpdatedAt: "2026-01-01T00:00:00Z"},
		"b": {ID: "b", Title: "B"},
	}
	vectors := &fakeVectors{hits: []ScoredID{{ID: "b", Score: 0.9}, {ID: "a", Score: 0.8}}}
	s := NewSearcher(fakeEmbedder{vec: []float32{1}}, vectors, items, logger.NewNop())

	got := s.Search(context.Background(), "legs", Minutes(20), nil)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Len(t, []rune(got[1].Description), descriptionLimit+3)
	assert.Empty(t, got[1].UpdatedAt)
	assert.Equal(t, 3, vectors.lastLimit)
	require.NotNil(t, vectors.lastFilter.Min)
	assert.Equal(t, 20, *vectors.lastFilter.Min)
	assert.Nil(t, vectors.lastFilter.Max)
}

func TestSearcher_Placeholders(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	t.Run("embedding failure", func(t *testing.T) {
		s := NewSearcher(fakeEmbedder{err: errors.New("quota")}, &fakeVectors{}, fakeItems{}, log)
		got := s.Search(ctx, "q", nil, nil)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsPlaceholder())
		assert.Equal(t, "fallback_error", got[0].ID)
	})

	t.Run("empty embedding", func(t *testing.T) {
		s := NewSearcher(fakeEmbedder{}, &fakeVectors{}, fakeItems{}, log)
		got := s.Search(ctx, "q", nil, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "fallback_error", got[0].ID)
	})

	t.Run("backend failure", func(t *testing.T) {
		s := NewSearcher(fakeEmbedder{vec: []float32{1}}, &fakeVectors{err: errors.New("db locked")}, fakeItems{}, log)
		got := s.Search(ctx, "q", nil, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "fallback_error", got[0].ID)
	})

	t.Run("no results", func(t *testing.T) {
		s := NewSearcher(fakeEmbedder{vec: []float32{1}}, &fakeVectors{}, fakeItems{}, log)
		got := s.Search(ctx, "q", nil, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "fallback_rest", got[0].ID)
	})
}
