package models

import (
	"time"

	"github.com/google/uuid"
)

// Template message types.
const (
	TemplateTypeReminder   = "reminder"
	TemplateTypeEscalation = "escalation"
)

// MessageTemplate is a versioned text template keyed by channel and type.
// Escalation templates may additionally be keyed to a ladder level.
type MessageTemplate struct {
	ID             uuid.UUID `json:"id"`
	OrgID          uuid.UUID `json:"org_id"`
	Channel        Channel   `json:"channel"`
	Type           string    `json:"type"`            // reminder | escalation
	Level          *int      `json:"level,omitempty"` // escalation templates only
	Version        int       `json:"version"`
	Body           string    `json:"body"` // text with {{placeholder}} tokens
	RequiredFields []string  `json:"required_fields"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageTemplateCreate is the input structure for creating a template. A new
// template for an existing (channel, type, level) key bumps the version and
// retires the previous one.
type MessageTemplateCreate struct {
	OrgID          string   `json:"org_id" binding:"required"`
	Channel        Channel  `json:"channel" binding:"required"`
	Type           string   `json:"type" binding:"required"`
	Level          *int     `json:"level"`
	Body           string   `json:"body" binding:"required"`
	RequiredFields []string `json:"required_fields"`
}

// FieldDefinition is one entry of the dynamic-field schema registry. Item
// writes validate their dynamic_fields map against these.
type FieldDefinition struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Type      string    `json:"type"` // text | number | date | select
	Options   []string  `json:"options,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldDefinitionCreate is the input structure for registering a dynamic field.
type FieldDefinitionCreate struct {
	OrgID   string   `json:"org_id" binding:"required"`
	Key     string   `json:"key" binding:"required"`
	Label   string   `json:"label" binding:"required"`
	Type    string   `json:"type" binding:"required"`
	Options []string `json:"options"`
}
