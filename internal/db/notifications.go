package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hr-reminder-service/internal/models"
)

const notificationColumns = `
        id, org_id, item_id, recipient_id, channel, type, subject, body,
        status, last_error, sent_at, created_at`

func scanNotification(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID, &n.OrgID, &n.ItemID, &n.RecipientID, &n.Channel, &n.Type,
		&n.Subject, &n.Body, &n.Status, &n.LastError, &n.SentAt, &n.CreatedAt,
	)
	return n, err
}

func (d *DB) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
        INSERT INTO notifications (
            id, org_id, item_id, recipient_id, channel, type, subject, body,
            status, last_error, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', '', NOW())
        RETURNING ` + notificationColumns
	created, err := scanNotification(d.Pool.QueryRow(ctx, query,
		n.ID, n.OrgID, n.ItemID, n.RecipientID, n.Channel, n.Type, n.Subject, n.Body))
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	return created, nil
}

func (d *DB) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status, lastError string) error {
	query := `
        UPDATE notifications
        SET status = $2, last_error = $3,
            sent_at = CASE WHEN $2 = 'sent' THEN $4 ELSE sent_at END
        WHERE id = $1`
	tag, err := d.Pool.Exec(ctx, query, id, status, lastError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no notification updated for id %s", id)
	}
	return nil
}

func (d *DB) GetNotificationsByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT `+notificationColumns+`
        FROM notifications
        WHERE recipient_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for recipient %s: %w", recipientID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (d *DB) GetAllNotifications(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT `+notificationColumns+`
        FROM notifications
        WHERE org_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// RecordReminderSend claims one (item, day, threshold, recipient, channel)
// send. It returns false when an earlier sweep already claimed it, which is
// what keeps a retried sweep from resending the same reminder.
func (d *DB) RecordReminderSend(ctx context.Context, itemID, recipientID uuid.UUID,
	channel models.Channel, threshold int, day time.Time) (bool, error) {

	sendDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	tag, err := d.Pool.Exec(ctx, `
        INSERT INTO reminder_sends (item_id, recipient_id, channel, threshold, send_day, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (item_id, recipient_id, channel, threshold, send_day) DO NOTHING`,
		itemID, recipientID, channel, threshold, sendDay)
	if err != nil {
		return false, fmt.Errorf("failed to record reminder send: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
