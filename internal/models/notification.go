package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one delivered (or attempted) message with its outcome.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"org_id"`
	ItemID      uuid.UUID  `json:"item_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	Channel     Channel    `json:"channel"`
	Type        string     `json:"type"` // reminder | escalation | item_event
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      string     `json:"status"` // pending | sent | failed
	LastError   string     `json:"last_error,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
