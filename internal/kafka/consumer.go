package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/inapp"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/notification"
)

type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// itemEvent is what upstream HR systems publish when an item changes hands.
type itemEvent struct {
	EventType string `json:"event_type"` // created | updated | acknowledged
	OrgID     string `json:"org_id"`
	ItemID    string `json:"item_id"`
	ActorID   string `json:"actor_id"`
	Message   string `json:"message"`
}

// Consumer ingests item events and converts them into in-app notifications
// and escalation acknowledgements.
type Consumer struct {
	reader *kafka.Reader
	db     *db.DB
	svc    *notification.Service
	hub    *inapp.Hub
	logger *logging.Logger
	cancel context.CancelFunc
}

func NewConsumer(cfg Config, database *db.DB, svc *notification.Service, hub *inapp.Hub) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Broker},
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, db: database, svc: svc, hub: hub, logger: svc.Logger()}
}

func (c *Consumer) Start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var ev itemEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				c.logger.Errorf("Unmarshal message failed: %v", err)
				continue
			}
			if ev.ItemID == "" || ev.OrgID == "" {
				c.logger.Errorf("Invalid item event: missing item_id or org_id")
				continue
			}

			if err := c.handleEvent(ctx, ev); err != nil {
				c.logger.Errorf("Handle %s event for item %s failed: %v", ev.EventType, ev.ItemID, err)
				continue
			}
			c.logger.Infof("Processed %s event for item %s", ev.EventType, ev.ItemID)
		}
	}()
}

func (c *Consumer) handleEvent(ctx context.Context, ev itemEvent) error {
	itemID, err := uuid.Parse(ev.ItemID)
	if err != nil {
		return fmt.Errorf("invalid item_id: %w", err)
	}

	switch ev.EventType {
	case "acknowledged":
		// an upstream acknowledgement freezes the item's escalation ladder
		log, err := c.db.GetOpenLogByItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			return err
		}
		return c.db.SetEscalationStatus(ctx, log.ID, models.EscalationAcknowledged)

	case "created", "updated":
		item, err := c.db.GetItem(ctx, ev.ItemID)
		if err != nil {
			return err
		}
		recipient, err := c.db.GetRecipient(ctx, item.ResponsiblePerson.String())
		if err != nil {
			return err
		}

		subject := fmt.Sprintf("Item %s: %s", ev.EventType, item.Title)
		body := ev.Message
		if body == "" {
			body = fmt.Sprintf("%s was %s in an upstream system.", item.Title, ev.EventType)
		}
		notif, err := c.db.CreateNotification(ctx, models.Notification{
			OrgID:       item.OrgID,
			ItemID:      item.ID,
			RecipientID: recipient.ID,
			Channel:     models.ChannelInApp,
			Type:        "item_event",
			Subject:     subject,
			Body:        body,
		})
		if err != nil {
			return err
		}
		c.svc.QueueTask(models.DispatchTask{
			NotificationID: notif.ID,
			OrgID:          item.OrgID,
			ItemID:         item.ID,
			Recipient:      recipient,
			Channel:        models.ChannelInApp,
			Type:           "item_event",
			Subject:        subject,
			Body:           body,
		})
		return nil

	default:
		c.logger.Warnf("Ignoring unknown event_type %q for item %s", ev.EventType, ev.ItemID)
		return nil
	}
}

func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.reader.Close()
	if err != nil {
		return
	}
}
