package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a trackable document or record with an expiry date and a workflow status.
type Item struct {
	ID                uuid.UUID         `json:"id"`
	OrgID             uuid.UUID         `json:"org_id"`
	DepartmentID      uuid.UUID         `json:"department_id"`
	CategoryID        uuid.UUID         `json:"category_id"`
	EntityType        string            `json:"entity_type"` // license | contract | ...
	Title             string            `json:"title"`
	RefNumber         string            `json:"ref_number"`
	Notes             string            `json:"notes,omitempty"`
	ExpiryDate        time.Time         `json:"expiry_date"`
	ExpiryTime        string            `json:"expiry_time,omitempty"` // "15:04", optional
	WorkflowStatus    WorkflowStatus    `json:"workflow_status"`
	ResponsiblePerson uuid.UUID         `json:"responsible_person"`
	DynamicFields     map[string]string `json:"dynamic_fields,omitempty"`
	Version           int64             `json:"version"`
	Status            string            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ItemCreate is the input structure for creating a new item.
type ItemCreate struct {
	OrgID             string            `json:"org_id" binding:"required"`
	DepartmentID      string            `json:"department_id" binding:"required"`
	CategoryID        string            `json:"category_id" binding:"required"`
	EntityType        string            `json:"entity_type" binding:"required"`
	Title             string            `json:"title" binding:"required"`
	RefNumber         string            `json:"ref_number"`
	Notes             string            `json:"notes"`
	ExpiryDate        string            `json:"expiry_date" binding:"required"` // "2006-01-02"
	ExpiryTime        string            `json:"expiry_time"`
	ResponsiblePerson string            `json:"responsible_person" binding:"required"`
	RecipientIDs      []string          `json:"recipient_ids"`
	DynamicFields     map[string]string `json:"dynamic_fields"`
}

// ItemUpdate is the input structure for updating an existing item.
type ItemUpdate struct {
	Title         string            `json:"title,omitempty"`
	RefNumber     string            `json:"ref_number,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	ExpiryDate    string            `json:"expiry_date,omitempty"`
	ExpiryTime    string            `json:"expiry_time,omitempty"`
	DepartmentID  string            `json:"department_id,omitempty"`
	CategoryID    string            `json:"category_id,omitempty"`
	DynamicFields map[string]string `json:"dynamic_fields,omitempty"`
}

// TransitionRequest asks to move an item along one workflow edge.
type TransitionRequest struct {
	To            WorkflowStatus `json:"to" binding:"required"`
	ActorID       string         `json:"actor_id" binding:"required"`
	Note          string         `json:"note"`
	AttachmentURL string         `json:"attachment_url"`
	Version       int64          `json:"version"`
}

// StatusHistory is one committed workflow transition, kept for audit.
type StatusHistory struct {
	ID         uuid.UUID      `json:"id"`
	ItemID     uuid.UUID      `json:"item_id"`
	ActorID    string         `json:"actor_id"` // recipient UUID or "system"
	FromStatus WorkflowStatus `json:"from_status"`
	ToStatus   WorkflowStatus `json:"to_status"`
	Note       string         `json:"note,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
