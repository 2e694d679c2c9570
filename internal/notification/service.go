package notification

import (
	"context"
	"sync"

	"hr-reminder-service/internal/config"
	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/inapp"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/providers"
)

// Service drains the dispatch queue with a worker pool and records every
// delivery outcome on the notification row.
type Service struct {
	db            *db.DB
	logger        *logging.Logger
	config        config.Config
	tasks         chan models.DispatchTask
	ctx           context.Context
	cancel        context.CancelFunc
	wg            *sync.WaitGroup
	providerFuncs map[models.Channel]func(context.Context, models.DispatchTask) error
}

// New constructs the dispatch Service.
func New(database *db.DB, logger *logging.Logger, cfg config.Config, hub *inapp.Hub) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		db:     database,
		logger: logger,
		config: cfg,
		tasks:  make(chan models.DispatchTask, cfg.Notification.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	// initialize provider functions, injecting config where needed
	svc.providerFuncs = map[models.Channel]func(context.Context, models.DispatchTask) error{
		models.ChannelEmail: func(ctx context.Context, task models.DispatchTask) error {
			return providers.SendEmail(ctx, task, svc.config)
		},
		models.ChannelTelegram: func(ctx context.Context, task models.DispatchTask) error {
			return providers.SendTelegram(ctx, task, svc.logger, svc.config)
		},
		models.ChannelWhatsApp: func(ctx context.Context, task models.DispatchTask) error {
			return providers.SendWhatsApp(ctx, task, svc.logger, svc.config)
		},
		models.ChannelInApp: func(ctx context.Context, task models.DispatchTask) error {
			return providers.SendInApp(ctx, task, hub)
		},
	}
	return svc
}

// Logger exposes the Service's logger to the Kafka consumer or caller.
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers; Start's wait group observes their exit.
func (s *Service) Stop() {
	s.cancel()
}

// QueueTask enqueues a dispatch for delivery.
func (s *Service) QueueTask(task models.DispatchTask) {
	select {
	case s.tasks <- task:
		s.logger.Debugf("Queued dispatch: notification=%s channel=%s", task.NotificationID, task.Channel)
	default:
		s.logger.Errorf("Queue full, dropping dispatch: notification=%s channel=%s", task.NotificationID, task.Channel)
	}
}

// worker processes dispatches until context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			s.handleTask(task)
		}
	}
}

// handleTask delivers one dispatch via its channel provider and finalizes the
// notification row.
func (s *Service) handleTask(task models.DispatchTask) {
	provider, ok := s.providerFuncs[task.Channel]
	if !ok {
		s.logger.Errorf("No provider for channel %s, notification=%s", task.Channel, task.NotificationID)
		_ = s.db.UpdateNotificationStatus(s.ctx, task.NotificationID, "failed", "no provider for channel "+string(task.Channel))
		return
	}

	err := provider(s.ctx, task)

	final := "sent"
	lastError := ""
	if err != nil {
		final = "failed"
		lastError = err.Error()
		s.logger.Errorf("Dispatch error via %s: %v", task.Channel, err)
	}
	if err := s.db.UpdateNotificationStatus(s.ctx, task.NotificationID, final, lastError); err != nil {
		s.logger.Errorf("Failed to finalize notification %s: %v", task.NotificationID, err)
		return
	}

	s.logger.Infof("Notification %s dispatched %s via %s to recipient %s",
		task.NotificationID, final, task.Channel, task.Recipient.ID)
}
