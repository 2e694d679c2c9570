package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/template"
)

// Store is the slice of the DB layer the sweep reads and writes.
type Store interface {
	ListOpenLogs(ctx context.Context) ([]models.EscalationLog, error)
	ListEscalationRules(ctx context.Context, orgID uuid.UUID) ([]models.EscalationRule, error)
	AdvanceEscalationLog(ctx context.Context, id uuid.UUID, level int, recipientID uuid.UUID, nextAt time.Time) error
	SetEscalationStatus(ctx context.Context, id uuid.UUID, status models.EscalationStatus) error
	GetItem(ctx context.Context, id string) (models.Item, error)
	CommitTransition(ctx context.Context, itemID uuid.UUID, version int64, from, to models.WorkflowStatus, actorID, note string) error
	GetRecipient(ctx context.Context, id string) (models.Recipient, error)
	GetCategoryName(ctx context.Context, id uuid.UUID) (string, error)
	GetActiveTemplates(ctx context.Context, orgID uuid.UUID, msgType string, level *int) (map[models.Channel]models.MessageTemplate, error)
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Dispatcher hands rendered messages to the delivery worker pool.
type Dispatcher interface {
	QueueTask(task models.DispatchTask)
}

// LogError is one escalation log's failure inside a batch pass.
type LogError struct {
	LogID uuid.UUID
	Err   error
}

// SweepResult summarizes one escalation pass.
type SweepResult struct {
	Scanned  int
	Advanced int
	Expired  int
	Errors   []LogError
}

// Sweeper advances overdue escalation logs up the ladder.
type Sweeper struct {
	store      Store
	dispatcher Dispatcher
	logger     *logging.Logger
	Now        func() time.Time
}

func NewSweeper(store Store, dispatcher Dispatcher, logger *logging.Logger) *Sweeper {
	return &Sweeper{store: store, dispatcher: dispatcher, logger: logger, Now: time.Now}
}

// Run evaluates every open log once. A failing log is recorded and skipped so
// one bad row never stalls the ladder for everyone else.
func (s *Sweeper) Run(ctx context.Context) SweepResult {
	var res SweepResult

	logs, err := s.store.ListOpenLogs(ctx)
	if err != nil {
		s.logger.Errorf("Escalation sweep could not list logs: %v", err)
		res.Errors = append(res.Errors, LogError{Err: err})
		return res
	}
	res.Scanned = len(logs)
	now := s.Now()

	for _, log := range logs {
		advanced, expired, err := s.processLog(ctx, log, now)
		if err != nil {
			res.Errors = append(res.Errors, LogError{LogID: log.ID, Err: err})
			continue
		}
		if advanced {
			res.Advanced++
		}
		if expired {
			res.Expired++
		}
	}

	s.logger.Infof("Escalation sweep done: scanned=%d advanced=%d expired=%d errors=%d",
		res.Scanned, res.Advanced, res.Expired, len(res.Errors))
	return res
}

func (s *Sweeper) processLog(ctx context.Context, log models.EscalationLog, now time.Time) (advanced, expired bool, err error) {
	rules, err := s.store.ListEscalationRules(ctx, log.OrgID)
	if err != nil {
		return false, false, fmt.Errorf("load escalation rules: %w", err)
	}

	res := ComputeLevel(log, rules, now)

	if res.Status == models.EscalationExpired {
		// Ladder exhausted above the current level; freeze the log.
		s.logger.Warnf("Escalation ladder gap for item %s at level %d, expiring log %s",
			log.ItemID, log.Level, log.ID)
		if err := s.store.SetEscalationStatus(ctx, log.ID, models.EscalationExpired); err != nil {
			return false, false, fmt.Errorf("expire log: %w", err)
		}
		return false, true, nil
	}
	if !res.Advanced {
		return false, false, nil
	}

	if err := s.store.AdvanceEscalationLog(ctx, log.ID, res.Level, res.RecipientID, res.NextAt); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			// a concurrent sweep already advanced it
			return false, false, nil
		}
		return false, false, fmt.Errorf("advance log: %w", err)
	}

	if err := s.notify(ctx, log, res, rules); err != nil {
		// the level advance stands; delivery problems are reported per log
		return true, false, err
	}
	return true, false, nil
}

// notify marks the item escalated, renders the level's template, and queues
// the messages for the new recipient.
func (s *Sweeper) notify(ctx context.Context, log models.EscalationLog, res Result, rules []models.EscalationRule) error {
	item, err := s.store.GetItem(ctx, log.ItemID.String())
	if err != nil {
		return fmt.Errorf("load item: %w", err)
	}

	if item.WorkflowStatus != models.StatusEscalatedToManager && item.WorkflowStatus != models.StatusFinished {
		err := s.store.CommitTransition(ctx, item.ID, item.Version, item.WorkflowStatus,
			models.StatusEscalatedToManager, "system",
			fmt.Sprintf("escalated to level %d (%s)", res.Level, models.EscalationLevelLabels[res.Level]))
		if err != nil && !errors.Is(err, db.ErrVersionConflict) {
			return fmt.Errorf("mark item escalated: %w", err)
		}
	}

	recipient, err := s.store.GetRecipient(ctx, res.RecipientID.String())
	if err != nil {
		return fmt.Errorf("load level recipient: %w", err)
	}
	rule, ok := ruleForLevel(rules, res.Level)
	if !ok {
		return fmt.Errorf("no rule for level %d after advance", res.Level)
	}

	templates, err := s.store.GetActiveTemplates(ctx, log.OrgID, models.TemplateTypeEscalation, &res.Level)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	category, err := s.store.GetCategoryName(ctx, item.CategoryID)
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	responsible := ""
	if rec, err := s.store.GetRecipient(ctx, item.ResponsiblePerson.String()); err == nil {
		responsible = rec.Name
	}
	fields := template.Fields(item, category, responsible, template.DaysLeft(item.ExpiryDate, s.Now()))

	subject := fmt.Sprintf("Escalation (%s): %s", models.EscalationLevelLabels[res.Level], item.Title)
	var firstErr error
	for _, ch := range models.AllChannels {
		if !channelIn(rule.Channels, ch) || !recipient.HasChannel(ch) {
			continue
		}
		tmpl, ok := templates[ch]
		if !ok {
			s.logger.Warnf("No active %s escalation template for org %s", ch, log.OrgID)
			continue
		}
		body, err := template.Render(tmpl, fields)
		if err != nil {
			// no partial message; record and keep the remaining channels
			s.logger.Warnf("Escalation render issue for item %s via %s: %v", item.ID, ch, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		notif, err := s.store.CreateNotification(ctx, models.Notification{
			OrgID:       log.OrgID,
			ItemID:      item.ID,
			RecipientID: recipient.ID,
			Channel:     ch,
			Type:        models.TemplateTypeEscalation,
			Subject:     subject,
			Body:        body,
		})
		if err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		s.dispatcher.QueueTask(models.DispatchTask{
			NotificationID: notif.ID,
			OrgID:          log.OrgID,
			ItemID:         item.ID,
			Recipient:      recipient,
			Channel:        ch,
			Type:           models.TemplateTypeEscalation,
			Subject:        subject,
			Body:           body,
		})
	}
	return firstErr
}

func channelIn(channels []models.Channel, c models.Channel) bool {
	for _, have := range channels {
		if have == c {
			return true
		}
	}
	return false
}
