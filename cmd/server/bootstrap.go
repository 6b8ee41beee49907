package main

import (
	"context"
	"time"

	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/internal/utils"
	"github.com/forps/taskboard/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	reportService *services.ReportService
	digestQueue   services.DigestQueue
	worker        *services.Worker
}

// bootstrap initializes all application dependencies: database, services,
// queue and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitSystemLogger(models.GetDB())

	notificationService := services.NewNotificationService()

	// Digest queue: asynq when Redis is enabled and reachable, otherwise
	// in-process delivery.
	digestQueue := services.InitDigestQueue(cfg)
	reportService := services.NewReportService(models.GetDB(), notificationService, digestQueue)

	processDigest := func(ctx context.Context, job *services.DigestJob) error {
		return reportService.SendProjectDigest(job.ProjectID, time.Now().UTC())
	}
	if syncQueue, ok := digestQueue.(*services.SyncDigestQueue); ok {
		syncQueue.SetProcessor(processDigest)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processDigest)
			worker.Start()
		}
	}

	if err := reportService.StartScheduler(&cfg.Report); err != nil {
		logger.Fatalf("Failed to start report scheduler: %v", err)
	}

	return &appServices{
		reportService: reportService,
		digestQueue:   digestQueue,
		worker:        worker,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.reportService.StopScheduler()
	logger.Info().Msg("Report scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.digestQueue != nil {
		s.digestQueue.Close()
	}
}
