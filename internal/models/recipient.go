package models

import (
	"time"

	"github.com/google/uuid"
)

// Recipient is a person or external contact eligible to receive notifications.
type Recipient struct {
	ID             uuid.UUID `json:"id"`
	OrgID          uuid.UUID `json:"org_id"`
	DepartmentID   uuid.UUID `json:"department_id"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"` // E.164, used for WhatsApp
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	Channels       []Channel `json:"channels"` // channels this recipient has enabled
	SortOrder      int       `json:"sort_order"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecipientCreate is the input structure for creating a recipient.
type RecipientCreate struct {
	OrgID          string   `json:"org_id" binding:"required"`
	DepartmentID   string   `json:"department_id" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Role           Role     `json:"role" binding:"required"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	TelegramChatID int64    `json:"telegram_chat_id"`
	Channels       []string `json:"channels"`
	SortOrder      int      `json:"sort_order"`
}

// RecipientUpdate is the input structure for updating a recipient.
type RecipientUpdate struct {
	Name           string   `json:"name,omitempty"`
	Role           Role     `json:"role,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	TelegramChatID int64    `json:"telegram_chat_id,omitempty"`
	Channels       []string `json:"channels,omitempty"`
	SortOrder      *int     `json:"sort_order,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// HasChannel reports whether the recipient enabled the given channel.
func (r Recipient) HasChannel(c Channel) bool {
	for _, have := range r.Channels {
		if have == c {
			return true
		}
	}
	return false
}

// Address returns the delivery address for a channel, empty if not configured.
func (r Recipient) Address(c Channel) string {
	switch c {
	case ChannelEmail:
		return r.Email
	case ChannelWhatsApp:
		return r.Phone
	default:
		return ""
	}
}
