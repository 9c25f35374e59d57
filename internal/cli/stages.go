package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/usecase"
)

func newScanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Collect new articles into the day store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, app.StageScan, func(ctx context.Context, p *usecase.Pipeline, at time.Time) error {
				report, err := p.Scan(ctx, at)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: collected %d, added %d, stored %d\n",
					domain.DayKey(at), report.Collected, report.Added, report.Total)
				return nil
			})
		},
	}
}

func newDedupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dedup",
		Short: "Merge duplicate coverage of the same story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, app.StageDedup, func(ctx context.Context, p *usecase.Pipeline, at time.Time) error {
				day := domain.DayKey(at)
				report, err := p.Dedup(ctx, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d articles -> %d stories (%d merges)\n",
					day, report.Before, report.After, report.Merges)
				return nil
			})
		},
	}
}

func newEnrichCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Summarize articles that have no summary yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, app.StageEnrich, func(ctx context.Context, p *usecase.Pipeline, at time.Time) error {
				day := domain.DayKey(at)
				report, err := p.Enrich(ctx, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: processed %d (%d generated, %d fallback), %d already summarized\n",
					day, report.Processed, report.Genuine, report.Fallback, report.Skipped)
				return nil
			})
		},
	}
}

func newDigestCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Publish the day's digest to Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, app.StageDigest, func(ctx context.Context, p *usecase.Pipeline, at time.Time) error {
				return p.Digest(ctx, domain.DayKey(at))
			})
		},
	}
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run scan, dedup, enrich and digest once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runStage(cmd, app.StageAll, func(ctx context.Context, p *usecase.Pipeline, at time.Time) error {
				return p.Run(ctx, at)
			})
		},
	}
}
