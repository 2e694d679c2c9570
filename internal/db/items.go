package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hr-reminder-service/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is inactive.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a compare-and-swap update matched no
	// row: someone else committed a transition first.
	ErrVersionConflict = errors.New("version conflict")
)

const itemColumns = `
        id, org_id, department_id, category_id, entity_type, title, ref_number,
        notes, expiry_date, expiry_time, workflow_status, responsible_person,
        dynamic_fields, version, status, created_at, updated_at`

func scanItem(row pgx.Row) (models.Item, error) {
	var it models.Item
	err := row.Scan(
		&it.ID, &it.OrgID, &it.DepartmentID, &it.CategoryID, &it.EntityType,
		&it.Title, &it.RefNumber, &it.Notes, &it.ExpiryDate, &it.ExpiryTime,
		&it.WorkflowStatus, &it.ResponsiblePerson, &it.DynamicFields,
		&it.Version, &it.Status, &it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}

// CreateItem inserts an item and its recipient links in one transaction.
func (d *DB) CreateItem(ctx context.Context, it models.Item, recipientIDs []uuid.UUID) (models.Item, error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO items (
            id, org_id, department_id, category_id, entity_type, title,
            ref_number, notes, expiry_date, expiry_time, workflow_status,
            responsible_person, dynamic_fields, version, status, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, 'active', NOW(), NOW())
        RETURNING ` + itemColumns
	created, err := scanItem(tx.QueryRow(ctx, query,
		it.ID, it.OrgID, it.DepartmentID, it.CategoryID, it.EntityType,
		it.Title, it.RefNumber, it.Notes, it.ExpiryDate, it.ExpiryTime,
		models.StatusNew, it.ResponsiblePerson, it.DynamicFields))
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to create item: %w", err)
	}

	for _, rid := range recipientIDs {
		_, err := tx.Exec(ctx, `
            INSERT INTO item_recipients (item_id, recipient_id)
            VALUES ($1, $2) ON CONFLICT DO NOTHING`, created.ID, rid)
		if err != nil {
			return models.Item{}, fmt.Errorf("failed to link recipient %s: %w", rid, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Item{}, fmt.Errorf("failed to commit item: %w", err)
	}
	return created, nil
}

func (d *DB) GetItem(ctx context.Context, idStr string) (models.Item, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return models.Item{}, fmt.Errorf("invalid item ID: %w", err)
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND status = 'active'`
	it, err := scanItem(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, fmt.Errorf("failed to get item %s: %w", idStr, err)
	}
	return it, nil
}

// ListItems returns active items for an org, newest first.
func (d *DB) ListItems(ctx context.Context, orgID uuid.UUID, workflowStatus string, limit, offset int) ([]models.Item, error) {
	query := `
        SELECT ` + itemColumns + `
        FROM items
        WHERE org_id = $1 AND status = 'active'
          AND ($2 = '' OR workflow_status = $2)
        ORDER BY expiry_date ASC, created_at DESC
        LIMIT $3 OFFSET $4`
	rows, err := d.Pool.Query(ctx, query, orgID, workflowStatus, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOpenItems returns every active, unfinished item across all orgs. Used by
// the reminder sweep.
func (d *DB) ListOpenItems(ctx context.Context) ([]models.Item, error) {
	query := `
        SELECT ` + itemColumns + `
        FROM items
        WHERE status = 'active' AND workflow_status <> 'finished'
        ORDER BY org_id, expiry_date ASC`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (d *DB) UpdateItem(ctx context.Context, it models.Item) (models.Item, error) {
	query := `
        UPDATE items
        SET title = $2, ref_number = $3, notes = $4, expiry_date = $5,
            expiry_time = $6, department_id = $7, category_id = $8,
            dynamic_fields = $9, updated_at = NOW()
        WHERE id = $1 AND status = 'active'
        RETURNING ` + itemColumns
	updated, err := scanItem(d.Pool.QueryRow(ctx, query,
		it.ID, it.Title, it.RefNumber, it.Notes, it.ExpiryDate, it.ExpiryTime,
		it.DepartmentID, it.CategoryID, it.DynamicFields))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, fmt.Errorf("failed to update item %s: %w", it.ID, err)
	}
	return updated, nil
}

// DeleteItem marks an item inactive (soft delete).
func (d *DB) DeleteItem(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid item ID: %w", err)
	}
	tag, err := d.Pool.Exec(ctx, `
        UPDATE items SET status = 'inactive', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", idStr, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CommitTransition moves an item to a new workflow status with a version
// compare-and-swap and writes the audit row in the same transaction. A zero
// row count means another actor got there first: nothing is written and
// ErrVersionConflict is returned.
func (d *DB) CommitTransition(ctx context.Context, itemID uuid.UUID, version int64,
	from, to models.WorkflowStatus, actorID, note string) error {

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE items
        SET workflow_status = $3, version = version + 1, updated_at = NOW()
        WHERE id = $1 AND version = $2 AND status = 'active'`,
		itemID, version, to)
	if err != nil {
		return fmt.Errorf("failed to update workflow status for item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO item_status_history (id, item_id, actor_id, from_status, to_status, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), itemID, actorID, from, to, note, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record status history for item %s: %w", itemID, err)
	}

	return tx.Commit(ctx)
}

// ListStatusHistory returns the committed transitions of an item, oldest first.
func (d *DB) ListStatusHistory(ctx context.Context, itemID uuid.UUID) ([]models.StatusHistory, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, item_id, actor_id, from_status, to_status, note, created_at
        FROM item_status_history
        WHERE item_id = $1
        ORDER BY created_at ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history for item %s: %w", itemID, err)
	}
	defer rows.Close()

	var history []models.StatusHistory
	for rows.Next() {
		var h models.StatusHistory
		if err := rows.Scan(&h.ID, &h.ItemID, &h.ActorID, &h.FromStatus, &h.ToStatus, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
