package models

import (
	"time"

	"github.com/google/uuid"
)

// EscalationLog is the single active escalation record for an item. Level only
// ever moves up while the log is open; resolving or expiring freezes it.
type EscalationLog struct {
	ID                 uuid.UUID        `json:"id"`
	OrgID              uuid.UUID        `json:"org_id"`
	ItemID             uuid.UUID        `json:"item_id"`
	Level              int              `json:"escalation_level"`
	Status             EscalationStatus `json:"status"`
	CurrentRecipientID uuid.UUID        `json:"current_recipient_id"`
	LastReminderAt     time.Time        `json:"last_reminder_at"`
	NextEscalationAt   time.Time        `json:"next_escalation_at"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Open reports whether the log can still advance or be acted on.
func (l EscalationLog) Open() bool {
	return !l.Status.Terminal()
}
