package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hr-reminder-service/internal/models"
)

const templateColumns = `
        id, org_id, channel, type, level, version, body, required_fields, status, created_at`

func scanTemplate(row pgx.Row) (models.MessageTemplate, error) {
	var t models.MessageTemplate
	err := row.Scan(
		&t.ID, &t.OrgID, &t.Channel, &t.Type, &t.Level, &t.Version, &t.Body,
		&t.RequiredFields, &t.Status, &t.CreatedAt,
	)
	return t, err
}

// CreateTemplate inserts a new template version and retires the previous
// active one for the same (channel, type, level) key.
func (d *DB) CreateTemplate(ctx context.Context, t models.MessageTemplate) (models.MessageTemplate, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return models.MessageTemplate{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var version int
	err = tx.QueryRow(ctx, `
        SELECT COALESCE(MAX(version), 0) + 1
        FROM message_templates
        WHERE org_id = $1 AND channel = $2 AND type = $3 AND level IS NOT DISTINCT FROM $4`,
		t.OrgID, t.Channel, t.Type, t.Level).Scan(&version)
	if err != nil {
		return models.MessageTemplate{}, fmt.Errorf("failed to compute template version: %w", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE message_templates
        SET status = 'retired'
        WHERE org_id = $1 AND channel = $2 AND type = $3 AND level IS NOT DISTINCT FROM $4 AND status = 'active'`,
		t.OrgID, t.Channel, t.Type, t.Level)
	if err != nil {
		return models.MessageTemplate{}, fmt.Errorf("failed to retire previous template: %w", err)
	}

	created, err := scanTemplate(tx.QueryRow(ctx, `
        INSERT INTO message_templates (id, org_id, channel, type, level, version, body, required_fields, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active', NOW())
        RETURNING `+templateColumns,
		t.ID, t.OrgID, t.Channel, t.Type, t.Level, version, t.Body, t.RequiredFields))
	if err != nil {
		return models.MessageTemplate{}, fmt.Errorf("failed to create template: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.MessageTemplate{}, fmt.Errorf("failed to commit template: %w", err)
	}
	return created, nil
}

// GetActiveTemplates returns the active template per channel for a message
// type. Escalation lookups fall back to the level-less template when no
// level-specific one exists.
func (d *DB) GetActiveTemplates(ctx context.Context, orgID uuid.UUID, msgType string, level *int) (map[models.Channel]models.MessageTemplate, error) {
	query := `
        SELECT ` + templateColumns + `
        FROM message_templates
        WHERE org_id = $1 AND type = $2 AND status = 'active'
          AND (level IS NOT DISTINCT FROM $3 OR level IS NULL)
        ORDER BY channel, level NULLS LAST`
	rows, err := d.Pool.Query(ctx, query, orgID, msgType, level)
	if err != nil {
		return nil, fmt.Errorf("failed to get templates for org %s: %w", orgID, err)
	}
	defer rows.Close()

	templates := make(map[models.Channel]models.MessageTemplate)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		// level-specific rows sort first and win
		if _, ok := templates[t.Channel]; !ok {
			templates[t.Channel] = t
		}
	}
	return templates, rows.Err()
}

func (d *DB) ListTemplates(ctx context.Context, orgID uuid.UUID) ([]models.MessageTemplate, error) {
	query := `
        SELECT ` + templateColumns + `
        FROM message_templates
        WHERE org_id = $1 AND status = 'active'
        ORDER BY type, channel, level NULLS FIRST`
	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var templates []models.MessageTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// DeleteTemplate retires a template version.
func (d *DB) DeleteTemplate(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid template ID: %w", err)
	}
	tag, err := d.Pool.Exec(ctx, `
        UPDATE message_templates SET status = 'retired' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", idStr, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFieldDefinition(row pgx.Row) (models.FieldDefinition, error) {
	var f models.FieldDefinition
	err := row.Scan(&f.ID, &f.OrgID, &f.Key, &f.Label, &f.Type, &f.Options, &f.Status, &f.CreatedAt)
	return f, err
}

func (d *DB) CreateFieldDefinition(ctx context.Context, f models.FieldDefinition) (models.FieldDefinition, error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	query := `
        INSERT INTO field_definitions (id, org_id, key, label, type, options, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 'active', NOW())
        RETURNING id, org_id, key, label, type, options, status, created_at`
	created, err := scanFieldDefinition(d.Pool.QueryRow(ctx, query,
		f.ID, f.OrgID, f.Key, f.Label, f.Type, f.Options))
	if err != nil {
		return models.FieldDefinition{}, fmt.Errorf("failed to create field definition: %w", err)
	}
	return created, nil
}

func (d *DB) ListFieldDefinitions(ctx context.Context, orgID uuid.UUID) ([]models.FieldDefinition, error) {
	query := `
        SELECT id, org_id, key, label, type, options, status, created_at
        FROM field_definitions
        WHERE org_id = $1 AND status = 'active'
        ORDER BY key`
	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list field definitions for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var fields []models.FieldDefinition
	for rows.Next() {
		f, err := scanFieldDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field definition: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// DeleteFieldDefinition marks a field definition inactive.
func (d *DB) DeleteFieldDefinition(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid field definition ID: %w", err)
	}
	tag, err := d.Pool.Exec(ctx, `
        UPDATE field_definitions SET status = 'inactive' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete field definition %s: %w", idStr, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
