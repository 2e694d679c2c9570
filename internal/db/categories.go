package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetCategoryName resolves a category label for template rendering. A missing
// category renders as an empty field, not an error.
func (d *DB) GetCategoryName(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := d.Pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return name, nil
}
