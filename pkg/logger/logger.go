package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger routes cron's internal logging into slog.
type CronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCron wraps log for use with cron.WithLogger. Cron's info messages are
// chatty, so they are emitted at debug level.
func NewCron(log *slog.Logger) *CronLogger {
	if log == nil {
		log = slog.Default()
	}
	return &CronLogger{log: log.With("component", "cron")}
}

// Info implements cron.Logger.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
