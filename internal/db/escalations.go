package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hr-reminder-service/internal/models"
)

const escalationColumns = `
        id, org_id, item_id, escalation_level, status, current_recipient_id,
        last_reminder_at, next_escalation_at, created_at, updated_at`

func scanEscalationLog(row pgx.Row) (models.EscalationLog, error) {
	var l models.EscalationLog
	err := row.Scan(
		&l.ID, &l.OrgID, &l.ItemID, &l.Level, &l.Status, &l.CurrentRecipientID,
		&l.LastReminderAt, &l.NextEscalationAt, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (d *DB) CreateEscalationLog(ctx context.Context, l models.EscalationLog) (models.EscalationLog, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	query := `
        INSERT INTO escalation_logs (
            id, org_id, item_id, escalation_level, status, current_recipient_id,
            last_reminder_at, next_escalation_at, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING ` + escalationColumns
	created, err := scanEscalationLog(d.Pool.QueryRow(ctx, query,
		l.ID, l.OrgID, l.ItemID, l.Level, l.Status, l.CurrentRecipientID,
		l.LastReminderAt, l.NextEscalationAt))
	if err != nil {
		return models.EscalationLog{}, fmt.Errorf("failed to create escalation log: %w", err)
	}
	return created, nil
}

func (d *DB) GetEscalationLog(ctx context.Context, idStr string) (models.EscalationLog, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return models.EscalationLog{}, fmt.Errorf("invalid escalation log ID: %w", err)
	}
	query := `SELECT ` + escalationColumns + ` FROM escalation_logs WHERE id = $1`
	l, err := scanEscalationLog(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.EscalationLog{}, ErrNotFound
		}
		return models.EscalationLog{}, fmt.Errorf("failed to get escalation log %s: %w", idStr, err)
	}
	return l, nil
}

// GetOpenLogByItem returns the one non-terminal escalation log of an item.
func (d *DB) GetOpenLogByItem(ctx context.Context, itemID uuid.UUID) (models.EscalationLog, error) {
	query := `
        SELECT ` + escalationColumns + `
        FROM escalation_logs
        WHERE item_id = $1 AND status NOT IN ('resolved', 'expired')
        ORDER BY created_at DESC
        LIMIT 1`
	l, err := scanEscalationLog(d.Pool.QueryRow(ctx, query, itemID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.EscalationLog{}, ErrNotFound
		}
		return models.EscalationLog{}, fmt.Errorf("failed to get open escalation log for item %s: %w", itemID, err)
	}
	return l, nil
}

// ListOpenLogs returns every advanceable log across all orgs. Used by the
// escalation sweep.
func (d *DB) ListOpenLogs(ctx context.Context) ([]models.EscalationLog, error) {
	query := `
        SELECT ` + escalationColumns + `
        FROM escalation_logs
        WHERE status IN ('pending', 'escalated')
        ORDER BY org_id, next_escalation_at`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open escalation logs: %w", err)
	}
	defer rows.Close()

	var logs []models.EscalationLog
	for rows.Next() {
		l, err := scanEscalationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListOpenLogsByOrg returns an org's advanceable logs for the dashboard.
func (d *DB) ListOpenLogsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.EscalationLog, error) {
	query := `
        SELECT ` + escalationColumns + `
        FROM escalation_logs
        WHERE org_id = $1 AND status NOT IN ('resolved', 'expired')
        ORDER BY next_escalation_at`
	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open escalation logs for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var logs []models.EscalationLog
	for rows.Next() {
		l, err := scanEscalationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AdvanceEscalationLog writes a ladder advance. The level guard keeps the log
// monotonic even when two sweeps race.
func (d *DB) AdvanceEscalationLog(ctx context.Context, id uuid.UUID, level int,
	recipientID uuid.UUID, nextAt time.Time) error {

	tag, err := d.Pool.Exec(ctx, `
        UPDATE escalation_logs
        SET escalation_level = $2, status = 'escalated', current_recipient_id = $3,
            next_escalation_at = $4, updated_at = NOW()
        WHERE id = $1 AND escalation_level < $2 AND status IN ('pending', 'escalated')`,
		id, level, recipientID, nextAt)
	if err != nil {
		return fmt.Errorf("failed to advance escalation log %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// SetEscalationStatus moves a log to acknowledged, resolved, or expired.
func (d *DB) SetEscalationStatus(ctx context.Context, id uuid.UUID, status models.EscalationStatus) error {
	tag, err := d.Pool.Exec(ctx, `
        UPDATE escalation_logs
        SET status = $2, updated_at = NOW()
        WHERE id = $1 AND status NOT IN ('resolved', 'expired')`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to set escalation log %s to %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchEscalationReminder records that a fresh reminder went out on an open
// pending log without moving its level.
func (d *DB) TouchEscalationReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := d.Pool.Exec(ctx, `
        UPDATE escalation_logs
        SET last_reminder_at = $2, updated_at = NOW()
        WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch escalation log %s: %w", id, err)
	}
	return nil
}
