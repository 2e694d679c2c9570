package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"hr-reminder-service/internal/escalation"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/reminder"
)

// Scheduler drives the two sweeps on cron schedules: the daily reminder pass
// and the frequent escalation check.
type Scheduler struct {
	cronEngine      *cron.Cron
	reminderSweep   *reminder.Sweeper
	escalationSweep *escalation.Sweeper
	logger          *logging.Logger
	reminderSpec    string
	escalationSpec  string
}

func New(reminderSweep *reminder.Sweeper, escalationSweep *escalation.Sweeper,
	logger *logging.Logger, reminderSpec, escalationSpec string) *Scheduler {
	return &Scheduler{
		cronEngine:      cron.New(cron.WithLocation(time.Local)),
		reminderSweep:   reminderSweep,
		escalationSweep: escalationSweep,
		logger:          logger,
		reminderSpec:    reminderSpec,
		escalationSpec:  escalationSpec,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.reminderSpec, func() {
		s.logger.Infof("Cron job triggered: reminder sweep")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		res := s.reminderSweep.Run(ctx)
		for _, e := range res.Errors {
			s.logger.Errorf("Reminder sweep item %s: %v", e.ItemID, e.Err)
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cronEngine.AddFunc(s.escalationSpec, func() {
		s.logger.Infof("Cron job triggered: escalation sweep")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		res := s.escalationSweep.Run(ctx)
		for _, e := range res.Errors {
			s.logger.Errorf("Escalation sweep log %s: %v", e.LogID, e.Err)
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Infof("Scheduler started: reminder=%q escalation=%q", s.reminderSpec, s.escalationSpec)
	return nil
}

func (s *Scheduler) Stop() {
	s.logger.Infof("Stopping scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Infof("Scheduler stopped")
}
