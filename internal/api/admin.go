package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/models"
)

func (h *Handler) CreateRecipient(c *gin.Context) {
	var in models.RecipientCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	orgID, err := uuid.Parse(in.OrgID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	deptID, err := uuid.Parse(in.DepartmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid department_id"})
		return
	}

	created, err := h.db.CreateRecipient(c.Request.Context(), models.Recipient{
		OrgID:          orgID,
		DepartmentID:   deptID,
		Name:           in.Name,
		Role:           in.Role,
		Email:          in.Email,
		Phone:          in.Phone,
		TelegramChatID: in.TelegramChatID,
		Channels:       models.ToChannels(in.Channels),
		SortOrder:      in.SortOrder,
	})
	if err != nil {
		h.logger.Errorf("Failed to create recipient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipient"})
		return
	}
	h.logger.Infof("Created recipient: %s", created.ID)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetRecipient(c *gin.Context) {
	id := c.Param("id")
	recipient, err := h.db.GetRecipient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
			return
		}
		h.logger.Errorf("Failed to get recipient %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recipient"})
		return
	}
	c.JSON(http.StatusOK, recipient)
}

func (h *Handler) ListRecipients(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	recipients, err := h.db.ListRecipientsByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to list recipients for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recipients"})
		return
	}
	c.JSON(http.StatusOK, recipients)
}

func (h *Handler) UpdateRecipient(c *gin.Context) {
	id := c.Param("id")
	var in models.RecipientUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	recipient, err := h.db.GetRecipient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
			return
		}
		h.logger.Errorf("Failed to get recipient %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recipient"})
		return
	}

	if in.Name != "" {
		recipient.Name = in.Name
	}
	if in.Role != "" {
		recipient.Role = in.Role
	}
	if in.Email != "" {
		recipient.Email = in.Email
	}
	if in.Phone != "" {
		recipient.Phone = in.Phone
	}
	if in.TelegramChatID != 0 {
		recipient.TelegramChatID = in.TelegramChatID
	}
	if in.Channels != nil {
		recipient.Channels = models.ToChannels(in.Channels)
	}
	if in.SortOrder != nil {
		recipient.SortOrder = *in.SortOrder
	}
	if in.Status != "" {
		recipient.Status = in.Status
	}

	updated, err := h.db.UpdateRecipient(c.Request.Context(), recipient)
	if err != nil {
		h.logger.Errorf("Failed to update recipient %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipient"})
		return
	}
	h.logger.Infof("Updated recipient: %s", updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteRecipient(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteRecipient(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
			return
		}
		h.logger.Errorf("Failed to delete recipient %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipient"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateReminderRule(c *gin.Context) {
	var in models.ReminderRuleCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	orgID, err := uuid.Parse(in.OrgID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}

	created, err := h.db.CreateReminderRule(c.Request.Context(), models.ReminderRule{
		OrgID:            orgID,
		TargetEntityType: in.TargetEntityType,
		DaysBefore:       in.DaysBefore,
		Channels:         models.ToChannels(in.Channels),
	})
	if err != nil {
		h.logger.Errorf("Failed to create reminder rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reminder rule"})
		return
	}
	h.logger.Infof("Created reminder rule: %s", created.ID)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListReminderRules(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	rules, err := h.db.ListReminderRules(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to list reminder rules for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reminder rules"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) DeleteReminderRule(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteReminderRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reminder rule not found"})
			return
		}
		h.logger.Errorf("Failed to delete reminder rule %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete reminder rule"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateEscalationRule(c *gin.Context) {
	var in models.EscalationRuleCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	orgID, err := uuid.Parse(in.OrgID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	recipientID, err := uuid.Parse(in.RecipientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient_id"})
		return
	}

	created, err := h.db.CreateEscalationRule(c.Request.Context(), models.EscalationRule{
		OrgID:       orgID,
		Level:       in.Level,
		DelayHours:  in.DelayHours,
		RecipientID: recipientID,
		Channels:    models.ToChannels(in.Channels),
		SortOrder:   in.SortOrder,
	})
	if err != nil {
		h.logger.Errorf("Failed to create escalation rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create escalation rule"})
		return
	}
	h.logger.Infof("Created escalation rule: %s (level %d)", created.ID, created.Level)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListEscalationRules(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	rules, err := h.db.ListEscalationRules(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to list escalation rules for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list escalation rules"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) DeleteEscalationRule(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteEscalationRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Escalation rule not found"})
			return
		}
		h.logger.Errorf("Failed to delete escalation rule %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete escalation rule"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListOpenEscalations(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	logs, err := h.db.ListOpenLogsByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to list open escalations for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list escalations"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) AcknowledgeEscalation(c *gin.Context) {
	h.setEscalation(c, models.EscalationAcknowledged)
}

func (h *Handler) ResolveEscalation(c *gin.Context) {
	h.setEscalation(c, models.EscalationResolved)
}

func (h *Handler) setEscalation(c *gin.Context, status models.EscalationStatus) {
	id := c.Param("id")
	log, err := h.db.GetEscalationLog(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Escalation log not found"})
			return
		}
		h.logger.Errorf("Failed to get escalation log %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get escalation log"})
		return
	}
	if !log.Open() {
		c.JSON(http.StatusConflict, gin.H{"error": "Escalation log is already closed"})
		return
	}
	if err := h.db.SetEscalationStatus(c.Request.Context(), log.ID, status); err != nil {
		h.logger.Errorf("Failed to set escalation log %s to %s: %v", id, status, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update escalation log"})
		return
	}
	h.logger.Infof("Escalation log %s set to %s", id, status)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var in models.MessageTemplateCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	orgID, err := uuid.Parse(in.OrgID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	if in.Type != models.TemplateTypeReminder && in.Type != models.TemplateTypeEscalation {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type"})
		return
	}

	created, err := h.db.CreateTemplate(c.Request.Context(), models.MessageTemplate{
		OrgID:          orgID,
		Channel:        in.Channel,
		Type:           in.Type,
		Level:          in.Level,
		Body:           in.Body,
		RequiredFields: in.RequiredFields,
	})
	if err != nil {
		h.logger.Errorf("Failed to create template: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}
	h.logger.Infof("Created template %s (v%d)", created.ID, created.Version)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	templates, err := h.db.ListTemplates(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to list templates for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteTemplate(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		h.logger.Errorf("Failed to delete template %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateFieldDefinition(c *gin.Context) {
	var in models.FieldDefinitionCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	orgID, err := uuid.Parse(in.OrgID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}

	created, err := h.db.CreateFieldDefinition(c.Request.Context(), models.FieldDefinition{
		OrgID:   orgID,
		Key:     in.Key,
		Label:   in.Label,
		Type:    in.Type,
		Options: in.Options,
	})
	if err != nil {
		h.logger.Errorf("Failed to create field definition: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create field definition"})
		return
	}
	h.logger.Infof("Created field definition: %s (%s)", created.ID, created.Key)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListFieldDefinitions(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	fields, err := h.db.ListFieldDefinitions(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorf("Failed to list field definitions for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list field definitions"})
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *Handler) DeleteFieldDefinition(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteFieldDefinition(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Field definition not found"})
			return
		}
		h.logger.Errorf("Failed to delete field definition %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete field definition"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetNotificationsByRecipient(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Param("recipient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient_id"})
		return
	}
	limit, offset := pagination(c)

	notifications, err := h.db.GetNotificationsByRecipient(c.Request.Context(), recipientID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get notifications for recipient %s: %v", recipientID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) GetNotifications(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	limit, offset := pagination(c)

	notifications, err := h.db.GetAllNotifications(c.Request.Context(), orgID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get notifications for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}
