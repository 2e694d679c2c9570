package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hr-reminder-service/internal/config"
	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/inapp"
	"hr-reminder-service/internal/logging"
)

type Handler struct {
	db     *db.DB
	logger *logging.Logger
	config config.Config
	hub    *inapp.Hub
}

func NewRouter(database *db.DB, logger *logging.Logger, cfg config.Config, hub *inapp.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := &Handler{db: database, logger: logger, config: cfg, hub: hub}

	api := r.Group(cfg.API.BasePath)
	{
		// Items and workflow
		api.POST("/items", h.CreateItem)
		api.GET("/items/:id", h.GetItem)
		api.GET("/items/org/:org_id", h.ListItems)
		api.PUT("/items/:id", h.UpdateItem)
		api.DELETE("/items/:id", h.DeleteItem)
		api.POST("/items/:id/transition", h.TransitionItem)
		api.GET("/items/:id/history", h.GetItemHistory)

		// Recipients
		api.POST("/recipients", h.CreateRecipient)
		api.GET("/recipients/:id", h.GetRecipient)
		api.GET("/recipients/org/:org_id", h.ListRecipients)
		api.PUT("/recipients/:id", h.UpdateRecipient)
		api.DELETE("/recipients/:id", h.DeleteRecipient)

		// Reminder rules
		api.POST("/reminder-rules", h.CreateReminderRule)
		api.GET("/reminder-rules/org/:org_id", h.ListReminderRules)
		api.DELETE("/reminder-rules/:id", h.DeleteReminderRule)

		// Escalation rules and logs
		api.POST("/escalation-rules", h.CreateEscalationRule)
		api.GET("/escalation-rules/org/:org_id", h.ListEscalationRules)
		api.DELETE("/escalation-rules/:id", h.DeleteEscalationRule)
		api.GET("/escalations/org/:org_id", h.ListOpenEscalations)
		api.POST("/escalations/:id/acknowledge", h.AcknowledgeEscalation)
		api.POST("/escalations/:id/resolve", h.ResolveEscalation)

		// Message templates
		api.POST("/templates", h.CreateTemplate)
		api.GET("/templates/org/:org_id", h.ListTemplates)
		api.DELETE("/templates/:id", h.DeleteTemplate)

		// Dynamic-field registry
		api.POST("/field-definitions", h.CreateFieldDefinition)
		api.GET("/field-definitions/org/:org_id", h.ListFieldDefinitions)
		api.DELETE("/field-definitions/:id", h.DeleteFieldDefinition)

		// Notification history
		api.GET("/notifications/recipient/:recipient_id", h.GetNotificationsByRecipient)
		api.GET("/notifications/org/:org_id", h.GetNotifications)
	}

	r.GET("/ws", h.Stream)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
