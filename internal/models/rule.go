package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderRule configures days-before-expiry thresholds and delivery channels
// for one entity type (license, contract, ...).
type ReminderRule struct {
	ID               uuid.UUID `json:"id"`
	OrgID            uuid.UUID `json:"org_id"`
	TargetEntityType string    `json:"target_entity_type"`
	DaysBefore       []int     `json:"days_before"` // sorted descending, e.g. [30,14,7,3,1,0]
	Channels         []Channel `json:"channels"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ReminderRuleCreate is the input structure for creating a reminder rule.
type ReminderRuleCreate struct {
	OrgID            string   `json:"org_id" binding:"required"`
	TargetEntityType string   `json:"target_entity_type" binding:"required"`
	DaysBefore       []int    `json:"days_before" binding:"required"`
	Channels         []string `json:"channels" binding:"required"`
}

// ReminderRuleUpdate is the input structure for updating a reminder rule.
type ReminderRuleUpdate struct {
	TargetEntityType string   `json:"target_entity_type,omitempty"`
	DaysBefore       []int    `json:"days_before,omitempty"`
	Channels         []string `json:"channels,omitempty"`
	Status           string   `json:"status,omitempty"`
}

// EscalationRule configures one rung of the escalation ladder: how long a
// reminder may sit unacknowledged at the previous level and who owns this one.
type EscalationRule struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Level       int       `json:"level"` // 0 = original recipient
	DelayHours  int       `json:"delay_hours"`
	RecipientID uuid.UUID `json:"recipient_id"` // role owner at this level
	Channels    []Channel `json:"channels"`
	SortOrder   int       `json:"sort_order"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EscalationRuleCreate is the input structure for creating an escalation rule.
type EscalationRuleCreate struct {
	OrgID       string   `json:"org_id" binding:"required"`
	Level       int      `json:"level"`
	DelayHours  int      `json:"delay_hours" binding:"required"`
	RecipientID string   `json:"recipient_id" binding:"required"`
	Channels    []string `json:"channels" binding:"required"`
	SortOrder   int      `json:"sort_order"`
}

// EscalationRuleUpdate is the input structure for updating an escalation rule.
type EscalationRuleUpdate struct {
	Level       *int     `json:"level,omitempty"`
	DelayHours  *int     `json:"delay_hours,omitempty"`
	RecipientID string   `json:"recipient_id,omitempty"`
	Channels    []string `json:"channels,omitempty"`
	SortOrder   *int     `json:"sort_order,omitempty"`
	Status      string   `json:"status,omitempty"`
}
