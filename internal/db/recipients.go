package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hr-reminder-service/internal/models"
)

const recipientColumns = `
        id, org_id, department_id, name, role, email, phone, telegram_chat_id,
        channels, sort_order, status, created_at, updated_at`

func scanRecipient(row pgx.Row) (models.Recipient, error) {
	var r models.Recipient
	var channels []string
	err := row.Scan(
		&r.ID, &r.OrgID, &r.DepartmentID, &r.Name, &r.Role, &r.Email, &r.Phone,
		&r.TelegramChatID, &channels, &r.SortOrder, &r.Status, &r.CreatedAt,
		&r.UpdatedAt,
	)
	r.Channels = models.ToChannels(channels)
	return r, err
}

func (d *DB) CreateRecipient(ctx context.Context, r models.Recipient) (models.Recipient, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
        INSERT INTO recipients (
            id, org_id, department_id, name, role, email, phone,
            telegram_chat_id, channels, sort_order, status, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active', NOW(), NOW())
        RETURNING ` + recipientColumns
	created, err := scanRecipient(d.Pool.QueryRow(ctx, query,
		r.ID, r.OrgID, r.DepartmentID, r.Name, r.Role, r.Email, r.Phone,
		r.TelegramChatID, models.ChannelStrings(r.Channels), r.SortOrder))
	if err != nil {
		return models.Recipient{}, fmt.Errorf("failed to create recipient: %w", err)
	}
	return created, nil
}

func (d *DB) GetRecipient(ctx context.Context, idStr string) (models.Recipient, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return models.Recipient{}, fmt.Errorf("invalid recipient ID: %w", err)
	}
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id = $1 AND status = 'active'`
	r, err := scanRecipient(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Recipient{}, ErrNotFound
		}
		return models.Recipient{}, fmt.Errorf("failed to get recipient %s: %w", idStr, err)
	}
	return r, nil
}

func (d *DB) ListRecipientsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Recipient, error) {
	query := `
        SELECT ` + recipientColumns + `
        FROM recipients
        WHERE org_id = $1 AND status = 'active'
        ORDER BY sort_order, name`
	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// ListItemRecipients returns the active recipients linked to an item, in
// stable dispatch order.
func (d *DB) ListItemRecipients(ctx context.Context, itemID uuid.UUID) ([]models.Recipient, error) {
	query := `
        SELECT ` + recipientColumns + `
        FROM recipients r
        JOIN item_recipients ir ON ir.recipient_id = r.id
        WHERE ir.item_id = $1 AND r.status = 'active'
        ORDER BY r.sort_order, r.name`
	rows, err := d.Pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients for item %s: %w", itemID, err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (d *DB) UpdateRecipient(ctx context.Context, r models.Recipient) (models.Recipient, error) {
	query := `
        UPDATE recipients
        SET name = $2, role = $3, email = $4, phone = $5, telegram_chat_id = $6,
            channels = $7, sort_order = $8, updated_at = NOW()
        WHERE id = $1 AND status = 'active'
        RETURNING ` + recipientColumns
	updated, err := scanRecipient(d.Pool.QueryRow(ctx, query,
		r.ID, r.Name, r.Role, r.Email, r.Phone, r.TelegramChatID,
		models.ChannelStrings(r.Channels), r.SortOrder))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Recipient{}, ErrNotFound
		}
		return models.Recipient{}, fmt.Errorf("failed to update recipient %s: %w", r.ID, err)
	}
	return updated, nil
}

// DeleteRecipient marks a recipient inactive (soft delete).
func (d *DB) DeleteRecipient(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid recipient ID: %w", err)
	}
	tag, err := d.Pool.Exec(ctx, `
        UPDATE recipients SET status = 'inactive', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipient %s: %w", idStr, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
