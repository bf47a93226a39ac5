package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const warmupJobTimeout = 10 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	warmup     *InventoryWarmupService
	schedule   string
	warmupDays int
	logger     *logrus.Logger
}

// NewCronService creates a new CronService. schedule uses the six-field format with seconds.
func NewCronService(warmup *InventoryWarmupService, schedule string, warmupDays int, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		warmup:     warmup,
		schedule:   schedule,
		warmupDays: warmupDays,
		logger:     logger,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	// "0 30 1 * * *" = At 1:30 AM every day
	if _, err := s.cron.AddFunc(s.schedule, s.warmupInventoryJob); err != nil {
		return fmt.Errorf("failed to schedule inventory warm-up job: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"days":     s.warmupDays,
	}).Info("Scheduled: inventory warm-up")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) warmupInventoryJob() {
	ctx, cancel := context.WithTimeout(context.Background(), warmupJobTimeout)
	defer cancel()

	startTime := time.Now()
	ensured, err := s.warmup.WarmUp(ctx, startTime, s.warmupDays)
	if err != nil {
		s.logger.WithError(err).WithField("ensured", ensured).Error("[CRON] Inventory warm-up failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"ensured":  ensured,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Inventory warm-up finished")
}

// RunWarmupNow runs the warm-up job immediately
func (s *CronService) RunWarmupNow() {
	s.warmupInventoryJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
