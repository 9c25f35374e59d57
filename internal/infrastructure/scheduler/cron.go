package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsDigest/internal/ports"
	"NewsDigest/pkg/logger"
)

// CronScheduler triggers jobs on a standard five-field cron expression.
// A trigger that fires while the previous run is still going is skipped, so
// one process never runs two pipelines at once. Nothing coordinates separate
// processes.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, location *time.Location, log *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &CronScheduler{spec: spec, location: location, logger: log}
}

// Start registers job and begins scheduling. The trigger time handed to the
// job is the wall-clock time of the firing in the scheduler's location.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cronLog := logger.NewCron(c.logger)
	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := runner.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	}); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}

	runner.Start()
	c.cron = runner

	c.logger.Info("scheduler started", "cron", c.spec, "location", c.location.String())
	return nil
}

// Next reports the next trigger time, or the zero time when not started.
func (c *CronScheduler) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		return time.Time{}
	}
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts scheduling and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}
