package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/escalation"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/template"
)

// Store is the slice of the DB layer the sweep reads and writes.
type Store interface {
	ListOpenItems(ctx context.Context) ([]models.Item, error)
	GetReminderRuleForOrg(ctx context.Context, orgID uuid.UUID, entityType string) (models.ReminderRule, error)
	ListItemRecipients(ctx context.Context, itemID uuid.UUID) ([]models.Recipient, error)
	GetActiveTemplates(ctx context.Context, orgID uuid.UUID, msgType string, level *int) (map[models.Channel]models.MessageTemplate, error)
	GetRecipient(ctx context.Context, id string) (models.Recipient, error)
	GetCategoryName(ctx context.Context, id uuid.UUID) (string, error)
	RecordReminderSend(ctx context.Context, itemID, recipientID uuid.UUID, channel models.Channel, threshold int, day time.Time) (bool, error)
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	ListEscalationRules(ctx context.Context, orgID uuid.UUID) ([]models.EscalationRule, error)
	GetOpenLogByItem(ctx context.Context, itemID uuid.UUID) (models.EscalationLog, error)
	CreateEscalationLog(ctx context.Context, l models.EscalationLog) (models.EscalationLog, error)
	SetEscalationStatus(ctx context.Context, id uuid.UUID, status models.EscalationStatus) error
	TouchEscalationReminder(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Dispatcher hands rendered messages to the delivery worker pool.
type Dispatcher interface {
	QueueTask(task models.DispatchTask)
}

// ItemError is one item's failure inside a batch pass.
type ItemError struct {
	ItemID uuid.UUID
	Err    error
}

// SweepResult summarizes one reminder pass. Errors never abort the pass; they
// accumulate here per item.
type SweepResult struct {
	Scanned    int
	Due        int
	Dispatched int
	Errors     []ItemError
}

// Sweeper runs the daily reminder pass over every open item.
type Sweeper struct {
	store      Store
	dispatcher Dispatcher
	logger     *logging.Logger
	Now        func() time.Time
}

func NewSweeper(store Store, dispatcher Dispatcher, logger *logging.Logger) *Sweeper {
	return &Sweeper{store: store, dispatcher: dispatcher, logger: logger, Now: time.Now}
}

// Run evaluates every open item against its org's reminder rule and queues
// the due dispatches. A failing item is recorded and skipped; the pass always
// covers the whole set.
func (s *Sweeper) Run(ctx context.Context) SweepResult {
	var res SweepResult

	items, err := s.store.ListOpenItems(ctx)
	if err != nil {
		s.logger.Errorf("Reminder sweep could not list items: %v", err)
		res.Errors = append(res.Errors, ItemError{Err: err})
		return res
	}
	res.Scanned = len(items)
	today := s.Now()

	for _, item := range items {
		dispatched, err := s.processItem(ctx, item, today)
		if err != nil {
			res.Errors = append(res.Errors, ItemError{ItemID: item.ID, Err: err})
			continue
		}
		if dispatched > 0 {
			res.Due++
			res.Dispatched += dispatched
		}
	}

	s.logger.Infof("Reminder sweep done: scanned=%d due=%d dispatched=%d errors=%d",
		res.Scanned, res.Due, res.Dispatched, len(res.Errors))
	return res
}

func (s *Sweeper) processItem(ctx context.Context, item models.Item, today time.Time) (int, error) {
	rule, err := s.store.GetReminderRuleForOrg(ctx, item.OrgID, item.EntityType)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, nil // no rule configured for this entity type
		}
		return 0, fmt.Errorf("load reminder rule: %w", err)
	}

	threshold, due := DueThreshold(item, rule, today)
	if !due {
		return 0, nil
	}

	recipients, err := s.store.ListItemRecipients(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("load recipients: %w", err)
	}
	templates, err := s.store.GetActiveTemplates(ctx, item.OrgID, models.TemplateTypeReminder, nil)
	if err != nil {
		return 0, fmt.Errorf("load templates: %w", err)
	}

	fields, err := s.buildFields(ctx, item, recipients, today)
	if err != nil {
		return 0, err
	}

	dispatches, renderErrs := DueReminders(item, rule, recipients, templates, fields, today)
	for _, rerr := range renderErrs {
		s.logger.Warnf("Reminder render issue for item %s: %v", item.ID, rerr)
	}

	queued := 0
	for _, disp := range dispatches {
		claimed, err := s.store.RecordReminderSend(ctx, item.ID, disp.Recipient.ID, disp.Channel, threshold, today)
		if err != nil {
			return queued, fmt.Errorf("claim reminder send: %w", err)
		}
		if !claimed {
			// Already sent this threshold today; a retried sweep stays silent.
			continue
		}

		notif, err := s.store.CreateNotification(ctx, models.Notification{
			OrgID:       item.OrgID,
			ItemID:      item.ID,
			RecipientID: disp.Recipient.ID,
			Channel:     disp.Channel,
			Type:        models.TemplateTypeReminder,
			Subject:     fmt.Sprintf("Reminder: %s expires in %d day(s)", item.Title, disp.Threshold),
			Body:        disp.Message,
		})
		if err != nil {
			return queued, fmt.Errorf("create notification: %w", err)
		}

		s.dispatcher.QueueTask(models.DispatchTask{
			NotificationID: notif.ID,
			OrgID:          item.OrgID,
			ItemID:         item.ID,
			Recipient:      disp.Recipient,
			Channel:        disp.Channel,
			Type:           models.TemplateTypeReminder,
			Subject:        notif.Subject,
			Body:           disp.Message,
		})
		queued++
	}

	if len(dispatches) > 0 {
		if err := s.ensureEscalation(ctx, item, today); err != nil {
			return queued, fmt.Errorf("ensure escalation: %w", err)
		}
	}
	return queued, nil
}

func (s *Sweeper) buildFields(ctx context.Context, item models.Item, recipients []models.Recipient, today time.Time) (map[string]string, error) {
	category, err := s.store.GetCategoryName(ctx, item.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}

	responsible := ""
	for _, r := range recipients {
		if r.ID == item.ResponsiblePerson {
			responsible = r.Name
			break
		}
	}
	if responsible == "" {
		if rec, err := s.store.GetRecipient(ctx, item.ResponsiblePerson.String()); err == nil {
			responsible = rec.Name
		}
	}

	return template.Fields(item, category, responsible, template.DaysLeft(item.ExpiryDate, today)), nil
}

// ensureEscalation opens or refreshes the item's escalation log after a
// reminder went out. A ladder with no level-0 rule never starts; an
// acknowledged log is closed and restarted by the new cycle.
func (s *Sweeper) ensureEscalation(ctx context.Context, item models.Item, now time.Time) error {
	rules, err := s.store.ListEscalationRules(ctx, item.OrgID)
	if err != nil {
		return fmt.Errorf("load escalation rules: %w", err)
	}
	start, ok := escalation.StartLevel(rules)
	if !ok {
		return nil
	}

	log, err := s.store.GetOpenLogByItem(ctx, item.ID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		// fresh ladder at level 0, owned by the original recipient
	case err != nil:
		return fmt.Errorf("load escalation log: %w", err)
	case log.Status == models.EscalationAcknowledged:
		// new cycle restarts a frozen ladder
		if err := s.store.SetEscalationStatus(ctx, log.ID, models.EscalationResolved); err != nil {
			return fmt.Errorf("close acknowledged log: %w", err)
		}
	default:
		return s.store.TouchEscalationReminder(ctx, log.ID, now)
	}

	_, err = s.store.CreateEscalationLog(ctx, models.EscalationLog{
		OrgID:              item.OrgID,
		ItemID:             item.ID,
		Level:              0,
		Status:             models.EscalationPending,
		CurrentRecipientID: item.ResponsiblePerson,
		LastReminderAt:     now,
		NextEscalationAt:   now.Add(time.Duration(start.DelayHours) * time.Hour),
	})
	if err != nil {
		return fmt.Errorf("open escalation log: %w", err)
	}
	return nil
}
