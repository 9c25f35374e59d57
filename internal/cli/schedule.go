package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
)

func newScheduleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the full pipeline on the configured cron schedule",
		Long: `Runs scan, dedup, enrich and digest every time the scheduler.cronExpression
fires, evaluated in scheduler.timezone. Stops on SIGINT or SIGTERM after the
running pass finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return opts.withApp(ctx, func(a *app.Application) error {
				opts.logger.Info("scheduler starting",
					"cron", opts.cfg.Scheduler.CronExpression,
					"timezone", opts.cfg.Scheduler.Location().String())
				return a.Schedule(ctx)
			})
		},
	}
}
