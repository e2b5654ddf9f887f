package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"ai-fitness-coach/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, repo *Repository, vectors *VectorRepository, item Item, vec []float32) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), item))
	require.NoError(t, vectors.Save(context.Background(), item.ID, vec))
}

func TestRepository_SaveGetList(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t).SQL)

	item := Item{ID: "w1", Title: "Leg Burner", Focus: []string{"Legs"}, DurationMins: Minutes(30), UpdatedAt: "2026-01-02T10:00:00Z"}
	require.NoError(t, repo.Save(ctx, item))

	got, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "Leg Burner", got.Title)
	require.NotNil(t, got.DurationMins)
	assert.Equal(t, 30, *got.DurationMins)

	// Upsert replaces the record.
	item.Title = "Leg Burner v2"
	require.NoError(t, repo.Save(ctx, item))
	got, err = repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "Leg Burner v2", got.Title)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	current, err := repo.IsCurrent(ctx, "w1", "2026-01-02T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, current)
	current, err = repo.IsCurrent(ctx, "w1", "2026-02-01T10:00:00Z")
	require.NoError(t, err)
	assert.False(t, current)
}

func TestRepository_GetByIDsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t).SQL)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, Item{ID: id, Title: id}))
	}

	items, err := repo.GetByIDs(ctx, []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}

func TestVectorRepository_FindSimilar(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db.SQL)
	vectors := NewVectorRepository(db.SQL)

	seed(t, repo, vectors, Item{ID: "legs", Title: "Legs", DurationMins: Minutes(45)}, []float32{1, 0, 0})
	seed(t, repo, vectors, Item{ID: "legs-short", Title: "Legs Short", DurationMins: Minutes(15)}, []float32{0.9, 0.1, 0})
	seed(t, repo, vectors, Item{ID: "arms", Title: "Arms", DurationMins: Minutes(30)}, []float32{0, 1, 0})
	seed(t, repo, vectors, Item{ID: "unknown", Title: "Mystery"}, []float32{0.5, 0.5, 0})

	hits, err := vectors.FindSimilar(ctx, []float32{1, 0, 0}, 3, DurationFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "legs", hits[0].ID)
	assert.Equal(t, "legs-short", hits[1].ID)
	assert.Equal(t, "unknown", hits[2].ID)

	hits, err = vectors.FindSimilar(ctx, []float32{1, 0, 0}, 10, DurationFilter{Max: Minutes(20)})
	require.NoError(t, err)
	ids := []string{}
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"legs-short", "unknown"}, ids, "unknown duration is never filtered out")

	hits, err = vectors.FindSimilar(ctx, []float32{1, 0, 0}, 10, DurationFilter{Min: Minutes(25), Max: Minutes(40)})
	require.NoError(t, err)
	ids = ids[:0]
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{"arms", "unknown"}, ids)

	require.NoError(t, repo.Delete(ctx, "legs"))
	_, err = vectors.Get(ctx, "legs")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVectorConversionRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := byteSliceToFloat32Slice(float32SliceToByteSlice(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = byteSliceToFloat32Slice([]byte{1, 2, 3})
	assert.Error(t, err)
}
