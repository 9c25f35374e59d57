package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Scheduler runs the whole pipeline on every trigger of a ports.Scheduler.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start hands the daily job to the driver. A failed run is logged and does
// not cancel later triggers.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) { s.runOnce(ctx, trigger) })
}

func (s *Scheduler) runOnce(ctx context.Context, trigger time.Time) {
	day := domain.DayKey(trigger)
	started := time.Now()
	s.logger.Info("scheduled run started", "day", day)

	if err := s.pipeline.Run(ctx, trigger); err != nil {
		s.logger.Error("scheduled run failed", "day", day, "elapsed", time.Since(started), "error", err)
		return
	}
	s.logger.Info("scheduled run finished", "day", day, "elapsed", time.Since(started))
}

// Stop waits for the driver to wind down.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
