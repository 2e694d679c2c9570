package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/workflow"
)

func (h *Handler) CreateItem(c *gin.Context) {
	var in models.ItemCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Errorf("Invalid request body for item: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, recipientIDs, err := h.itemFromCreate(in)
	if err != nil {
		h.logger.Errorf("Invalid item payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.validateDynamicFields(c, item.OrgID, item.DynamicFields); err != nil {
		h.logger.Errorf("Dynamic field validation failed: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	created, err := h.db.CreateItem(c.Request.Context(), item, recipientIDs)
	if err != nil {
		h.logger.Errorf("Failed to create item: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create item"})
		return
	}

	h.logger.Infof("Created item: %s", created.ID)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetItem(c *gin.Context) {
	id := c.Param("id")
	item, err := h.db.GetItem(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		h.logger.Errorf("Failed to get item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ListItems(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid org_id"})
		return
	}
	limit, offset := pagination(c)

	items, err := h.db.ListItems(c.Request.Context(), orgID, c.Query("workflow_status"), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list items for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	id := c.Param("id")
	var in models.ItemUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, err := h.db.GetItem(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		h.logger.Errorf("Failed to get item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get item"})
		return
	}

	if err := applyItemUpdate(&item, in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validateDynamicFields(c, item.OrgID, item.DynamicFields); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.db.UpdateItem(c.Request.Context(), item)
	if err != nil {
		h.logger.Errorf("Failed to update item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}
	h.logger.Infof("Updated item: %s", updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteItem(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		h.logger.Errorf("Failed to delete item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}
	h.logger.Infof("Deleted item: %s", id)
	c.Status(http.StatusNoContent)
}

// TransitionItem runs the workflow evaluator for one requested edge, then
// commits with a version compare-and-swap. Nothing changes on any failure.
func (h *Handler) TransitionItem(c *gin.Context) {
	id := c.Param("id")
	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, err := h.db.GetItem(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		h.logger.Errorf("Failed to get item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get item"})
		return
	}
	actorRec, err := h.db.GetRecipient(c.Request.Context(), req.ActorID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown actor"})
			return
		}
		h.logger.Errorf("Failed to get actor %s: %v", req.ActorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve actor"})
		return
	}

	actor := workflow.Actor{ID: actorRec.ID, Role: actorRec.Role}
	if err := workflow.Validate(item, req.To, actor, req.Note, req.AttachmentURL != ""); err != nil {
		var wfErr *workflow.Error
		if errors.As(err, &wfErr) {
			status := http.StatusUnprocessableEntity
			if wfErr.Kind == workflow.KindPermissionDenied {
				status = http.StatusForbidden
			}
			h.logger.Warnf("Transition rejected for item %s: %v", item.ID, wfErr)
			c.JSON(status, gin.H{"error": wfErr.Message, "kind": wfErr.Kind})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transition validation failed"})
		return
	}

	version := item.Version
	if req.Version > 0 {
		version = req.Version
	}
	err = h.db.CommitTransition(c.Request.Context(), item.ID, version,
		item.WorkflowStatus, req.To, actorRec.ID.String(), req.Note)
	if err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Item was modified by someone else", "kind": workflow.KindConflict})
			return
		}
		h.logger.Errorf("Failed to commit transition for item %s: %v", item.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transition"})
		return
	}

	h.settleEscalation(c, item.ID, req.To)

	updated, err := h.db.GetItem(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to reload item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload item"})
		return
	}
	h.logger.Infof("Item %s transitioned %s -> %s by %s", item.ID, item.WorkflowStatus, req.To, actorRec.ID)
	c.JSON(http.StatusOK, updated)
}

// settleEscalation keeps the escalation ladder in step with human workflow
// actions: acknowledging freezes it, finishing resolves it.
func (h *Handler) settleEscalation(c *gin.Context, itemID uuid.UUID, to models.WorkflowStatus) {
	var target models.EscalationStatus
	switch to {
	case models.StatusAcknowledged:
		target = models.EscalationAcknowledged
	case models.StatusFinished:
		target = models.EscalationResolved
	default:
		return
	}

	log, err := h.db.GetOpenLogByItem(c.Request.Context(), itemID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Errorf("Failed to load escalation log for item %s: %v", itemID, err)
		}
		return
	}
	if err := h.db.SetEscalationStatus(c.Request.Context(), log.ID, target); err != nil {
		h.logger.Errorf("Failed to settle escalation log %s: %v", log.ID, err)
	}
}

func (h *Handler) GetItemHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}
	history, err := h.db.ListStatusHistory(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to list history for item %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) itemFromCreate(in models.ItemCreate) (models.Item, []uuid.UUID, error) {
	var item models.Item
	var err error
	if item.OrgID, err = uuid.Parse(in.OrgID); err != nil {
		return item, nil, fmt.Errorf("invalid org_id")
	}
	if item.DepartmentID, err = uuid.Parse(in.DepartmentID); err != nil {
		return item, nil, fmt.Errorf("invalid department_id")
	}
	if item.CategoryID, err = uuid.Parse(in.CategoryID); err != nil {
		return item, nil, fmt.Errorf("invalid category_id")
	}
	if item.ResponsiblePerson, err = uuid.Parse(in.ResponsiblePerson); err != nil {
		return item, nil, fmt.Errorf("invalid responsible_person")
	}
	if item.ExpiryDate, err = time.Parse("2006-01-02", in.ExpiryDate); err != nil {
		return item, nil, fmt.Errorf("invalid expiry_date, want YYYY-MM-DD")
	}
	if in.ExpiryTime != "" {
		if _, err := time.Parse("15:04", in.ExpiryTime); err != nil {
			return item, nil, fmt.Errorf("invalid expiry_time, want HH:MM")
		}
	}

	item.EntityType = in.EntityType
	item.Title = in.Title
	item.RefNumber = in.RefNumber
	item.Notes = in.Notes
	item.ExpiryTime = in.ExpiryTime
	item.DynamicFields = in.DynamicFields

	recipientIDs := make([]uuid.UUID, 0, len(in.RecipientIDs))
	for _, raw := range in.RecipientIDs {
		rid, err := uuid.Parse(raw)
		if err != nil {
			return item, nil, fmt.Errorf("invalid recipient id %q", raw)
		}
		recipientIDs = append(recipientIDs, rid)
	}
	return item, recipientIDs, nil
}

func applyItemUpdate(item *models.Item, in models.ItemUpdate) error {
	if in.Title != "" {
		item.Title = in.Title
	}
	if in.RefNumber != "" {
		item.RefNumber = in.RefNumber
	}
	if in.Notes != "" {
		item.Notes = in.Notes
	}
	if in.ExpiryDate != "" {
		d, err := time.Parse("2006-01-02", in.ExpiryDate)
		if err != nil {
			return fmt.Errorf("invalid expiry_date, want YYYY-MM-DD")
		}
		item.ExpiryDate = d
	}
	if in.ExpiryTime != "" {
		if _, err := time.Parse("15:04", in.ExpiryTime); err != nil {
			return fmt.Errorf("invalid expiry_time, want HH:MM")
		}
		item.ExpiryTime = in.ExpiryTime
	}
	if in.DepartmentID != "" {
		id, err := uuid.Parse(in.DepartmentID)
		if err != nil {
			return fmt.Errorf("invalid department_id")
		}
		item.DepartmentID = id
	}
	if in.CategoryID != "" {
		id, err := uuid.Parse(in.CategoryID)
		if err != nil {
			return fmt.Errorf("invalid category_id")
		}
		item.CategoryID = id
	}
	if in.DynamicFields != nil {
		item.DynamicFields = in.DynamicFields
	}
	return nil
}

// validateDynamicFields checks an item's dynamic fields against the org's
// registry: unknown keys and select values outside the declared options are
// rejected at write time.
func (h *Handler) validateDynamicFields(c *gin.Context, orgID uuid.UUID, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	defs, err := h.db.ListFieldDefinitions(c.Request.Context(), orgID)
	if err != nil {
		return fmt.Errorf("failed to load field definitions: %w", err)
	}
	byKey := make(map[string]models.FieldDefinition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}

	for key, value := range fields {
		def, ok := byKey[key]
		if !ok {
			return fmt.Errorf("unknown dynamic field %q", key)
		}
		switch def.Type {
		case "number":
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return fmt.Errorf("dynamic field %q must be a number", key)
			}
		case "date":
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return fmt.Errorf("dynamic field %q must be a date (YYYY-MM-DD)", key)
			}
		case "select":
			found := false
			for _, opt := range def.Options {
				if opt == value {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("dynamic field %q must be one of %v", key, def.Options)
			}
		}
	}
	return nil
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
