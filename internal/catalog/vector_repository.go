package catalog

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

// DurationFilter bounds item duration at query time. Items with no recorded
// duration always pass.
type DurationFilter struct {
	Min *int
	Max *int
}

// ScoredID is a search hit.
type ScoredID struct {
	ID    string
	Score float64
}

// VectorRepository stores item embeddings in SQLite and ranks them by cosine
// similarity in process.
type VectorRepository struct {
	db *sql.DB
}

func NewVectorRepository(d *sql.DB) *VectorRepository {
	return &VectorRepository{db: d}
}

func (r *VectorRepository) Save(ctx context.Context, itemID string, embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("refusing to save an empty embedding")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO catalog_embeddings (item_id, embedding) VALUES (?, ?)
		ON CONFLICT(item_id) DO UPDATE SET embedding = excluded.embedding`,
		itemID, float32SliceToByteSlice(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding for %s: %w", itemID, err)
	}
	return nil
}

func (r *VectorRepository) Get(ctx context.Context, itemID string) ([]float32, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT embedding FROM catalog_embeddings WHERE item_id = ?`, itemID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding by item ID: %w", err)
	}
	return byteSliceToFloat32Slice(blob)
}

// FindSimilar returns up to limit item IDs ordered by similarity, highest first.
func (r *VectorRepository) FindSimilar(ctx context.Context, query []float32, limit int, filter DurationFilter) ([]ScoredID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.item_id, e.embedding
		FROM catalog_embeddings e
		JOIN catalog_items i ON i.id = e.item_id
		WHERE (? IS NULL OR i.duration_mins IS NULL OR i.duration_mins >= ?)
		  AND (? IS NULL OR i.duration_mins IS NULL OR i.duration_mins <= ?)`,
		nullInt(filter.Min), nullInt(filter.Min), nullInt(filter.Max), nullInt(filter.Max),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	var scored []ScoredID
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		embed, err := byteSliceToFloat32Slice(blob)
		if err != nil {
			continue
		}
		scored = append(scored, ScoredID{ID: id, Score: cosineSimilarity(query, embed)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(scored, func(a, b ScoredID) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// float32SliceToByteSlice converts a slice of float32 to a byte slice.
func float32SliceToByteSlice(floats []float32) []byte {
	buf := make([]byte, 4*len(floats))
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
	return buf
}

// byteSliceToFloat32Slice converts a byte slice to a slice of float32.
func byteSliceToFloat32Slice(bytes []byte) ([]float32, error) {
	if len(bytes)%4 != 0 {
		return nil, fmt.Errorf("byte slice length is not a multiple of 4")
	}
	floats := make([]float32, len(bytes)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(bytes[i*4 : (i+1)*4]))
	}
	return floats, nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
