package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"hr-reminder-service/internal/api"
	"hr-reminder-service/internal/config"
	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/escalation"
	"hr-reminder-service/internal/inapp"
	"hr-reminder-service/internal/kafka"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/notification"
	"hr-reminder-service/internal/reminder"
	"hr-reminder-service/internal/scheduler"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	hub := inapp.NewHub(logger)

	// Initialize notification service and its worker pool
	svc := notification.New(dbConn, logger, cfg, hub)
	var wg sync.WaitGroup
	svc.Start(&wg)

	// Initialize Kafka consumer
	consumer := kafka.NewConsumer(kafka.Config{
		Broker:  cfg.Kafka.Broker,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, dbConn, svc, hub)
	logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	consumer.Start(&wg)

	// Start the sweep scheduler
	reminderSweep := reminder.NewSweeper(dbConn, svc, logger)
	escalationSweep := escalation.NewSweeper(dbConn, svc, logger)
	sched := scheduler.New(reminderSweep, escalationSweep, logger,
		cfg.Scheduler.ReminderSpec, cfg.Scheduler.EscalationSpec)
	if err := sched.Start(); err != nil {
		logger.Errorf("Failed to start scheduler: %v", err)
		log.Fatalf("Scheduler failed: %v", err)
	}

	// Start API server
	router := api.NewRouter(dbConn, logger, cfg, hub)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down...")
	sched.Stop()
	consumer.Close()
	svc.Stop()
	wg.Wait()
	logger.Infof("Shutdown complete")
}
