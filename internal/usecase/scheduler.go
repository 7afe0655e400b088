package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsHarvester/internal/ports"
)

// Scheduler wires the interval driver with the bulk lifecycle run.
type Scheduler struct {
	driver        ports.Scheduler
	manager       *LifecycleManager
	timeframeDays int
	logger        *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs over every organization.
func NewScheduler(driver ports.Scheduler, manager *LifecycleManager, timeframeDays int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, manager: manager, timeframeDays: timeframeDays, logger: logger}
}

// Start registers the bulk run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.manager == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run", "trigger", trigger.Format(time.RFC3339))
		reports, err := s.manager.RunAll(ctx, s.timeframeDays)
		if err != nil {
			s.logger.Error("scheduled run finished with errors", "batches", len(reports), "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "batches", len(reports))
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
