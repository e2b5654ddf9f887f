package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-fitness-coach/internal/database"
)

// Repository is a database-backed repository for catalog items.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates an item.
func (r *Repository) Save(ctx context.Context, item Item) error {
	if item.ID == "" {
		return errors.New("catalog item has no ID")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog item: %w", err)
	}

	updatedAt := time.Now()
	if item.UpdatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
			updatedAt = parsed
		}
	}

	var duration sql.NullInt64
	if item.DurationMins != nil {
		duration = sql.NullInt64{Int64: int64(*item.DurationMins), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalog_items (id, data, duration_mins, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			duration_mins = excluded.duration_mins,
			updated_at = excluded.updated_at`,
		item.ID, string(data), duration, database.FormatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save catalog item %s: %w", item.ID, err)
	}
	return nil
}

// Get retrieves an item by its ID.
func (r *Repository) Get(ctx context.Context, id string) (*Item, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM catalog_items WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item %s: %w", id, err)
	}

	var item Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog item %s: %w", id, err)
	}
	return &item, nil
}

// GetByIDs retrieves several items, returned in the order of ids. Unknown
// IDs are skipped.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	byID, err := r.query(ctx, `SELECT id, data FROM catalog_items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// List retrieves every item ordered by ID.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM catalog_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		var item Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of items in the catalog.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog items: %w", err)
	}
	return n, nil
}

// IsCurrent reports whether the item exists with the given source timestamp,
// so ingestion can skip unchanged posts.
func (r *Repository) IsCurrent(ctx context.Context, id, updatedAt string) (bool, error) {
	item, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return item.UpdatedAt == updatedAt, nil
}

// Delete removes an item and its embedding.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_embeddings WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete embedding %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete catalog item %s: %w", id, err)
	}
	return tx.Commit()
}

func (r *Repository) query(ctx context.Context, q string, args ...any) (map[string]Item, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Item)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		var item Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			continue
		}
		out[id] = item
	}
	return out, rows.Err()
}
