package providers

import (
	"context"
	"time"

	"hr-reminder-service/internal/inapp"
	"hr-reminder-service/internal/models"
)

// SendInApp pushes a dispatch task onto the recipient's websocket stream.
// Offline recipients are not an error: the stored notification row is the
// durable copy and the dashboard loads it on next open.
func SendInApp(_ context.Context, task models.DispatchTask, hub *inapp.Hub) error {
	hub.Publish(task.Recipient.ID, inapp.Event{
		NotificationID: task.NotificationID,
		ItemID:         task.ItemID,
		Type:           task.Type,
		Subject:        task.Subject,
		Body:           task.Body,
		CreatedAt:      time.Now(),
	})
	return nil
}
