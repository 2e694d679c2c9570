package models

import "github.com/google/uuid"

// DispatchTask is one queued delivery: the rendered message plus a snapshot of
// the recipient's addressing, handed to the worker pool.
type DispatchTask struct {
	NotificationID uuid.UUID
	OrgID          uuid.UUID
	ItemID         uuid.UUID
	Recipient      Recipient
	Channel        Channel
	Type           string
	Subject        string
	Body           string
}
