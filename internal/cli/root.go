// Package cli contains the newsdigest commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/usecase"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	day        string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "newsdigest",
		Short: "Daily AI and cyber news digest pipeline",
		Long: `newsdigest collects articles from configured sources, merges duplicate
coverage of the same story, adds Hebrew summaries and publishes a digest.

Each stage reads and rewrites the day store, so stages can be run one by one
or re-run after a failure.

Example usage:
  newsdigest run                   # scan, dedup, enrich and publish today
  newsdigest enrich --day 2025-11-08
  newsdigest schedule              # run daily on the configured cron`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $NEWSDIGEST_CONFIG or config/config.yaml)")
	root.PersistentFlags().StringVar(&opts.day, "day", "", "UTC day to process as YYYY-MM-DD (default today)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newScanCommand(opts),
		newDedupCommand(opts),
		newEnrichCommand(opts),
		newDigestCommand(opts),
		newRunCommand(opts),
		newScheduleCommand(opts),
	)
	return root
}

func (o *options) init() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	o.cfg = cfg
	o.logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// at resolves --day into a time inside that UTC day, keeping the current
// clock so age windows still make sense for today.
func (o *options) at(now time.Time) (time.Time, error) {
	now = now.UTC()
	if o.day == "" {
		return now, nil
	}
	day, err := time.Parse("2006-01-02", o.day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --day %q: %w", o.day, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.UTC), nil
}

// withApp builds the application, hands it to fn and releases it afterwards.
func (o *options) withApp(ctx context.Context, fn func(*app.Application) error) error {
	application, err := app.New(ctx, o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			o.logger.Warn("release resources", "error", err)
		}
	}()
	return fn(application)
}

// runStage builds a pipeline for stages and runs fn against the resolved day.
func (o *options) runStage(cmd *cobra.Command, stages app.Stage, fn func(ctx context.Context, p *usecase.Pipeline, at time.Time) error) error {
	at, err := o.at(time.Now())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return o.withApp(ctx, func(a *app.Application) error {
		p, err := a.Pipeline(ctx, stages)
		if err != nil {
			return err
		}
		o.logger.Debug("running stages", "day", domain.DayKey(at))
		return fn(ctx, p, at)
	})
}
