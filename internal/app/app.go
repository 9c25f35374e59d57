package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	"NewsDigest/internal/config"
	"NewsDigest/internal/dedup"
	"NewsDigest/internal/infrastructure/content"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
	"NewsDigest/internal/usecase"
)

// Stage selects which pipeline collaborators get built.
type Stage uint8

const (
	StageScan Stage = 1 << iota
	StageDedup
	StageEnrich
	StageDigest

	StageAll = StageScan | StageDedup | StageEnrich | StageDigest
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   ports.DayStore
	closers []func() error
}

// New builds the application around the configured day store.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	return &Application{cfg: cfg, logger: baseLogger, store: store}, nil
}

func newStore(ctx context.Context, cfg config.StorageConfig) (ports.DayStore, error) {
	if cfg.S3.Bucket == "" {
		return storage.NewFileStore(cfg.Dir), nil
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:       cfg.S3.Bucket,
		Prefix:       cfg.S3.Prefix,
		Region:       cfg.S3.Region,
		Profile:      cfg.S3.Profile,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("open s3 day store: %w", err)
	}
	return store, nil
}

// Pipeline builds a pipeline carrying only the collaborators the requested
// stages need. Missing credentials for a requested stage fail here, before any
// store is touched.
func (a *Application) Pipeline(ctx context.Context, stages Stage) (*usecase.Pipeline, error) {
	deps := usecase.PipelineDeps{
		Store:  a.store,
		Logger: a.component("pipeline"),
		Digest: usecase.DigestOptions{
			MaxArticles:   a.cfg.Digest.MaxArticles,
			SummaryLength: a.cfg.Digest.SummaryLength,
			DashboardURL:  a.cfg.Digest.DashboardURL,
		},
	}

	if stages&StageScan != 0 {
		deps.Source = a.newSource()
	}

	var backend ports.Summarizer
	needBackend := stages&StageEnrich != 0 || (stages&StageDedup != 0 && a.cfg.Deduplication.UseLLMCheck)
	if needBackend {
		var err error
		backend, err = llm.New(ctx, a.cfg.LLM, a.cfg.Enrichment)
		if err != nil {
			return nil, fmt.Errorf("summarization backend: %w", err)
		}
		if c, ok := backend.(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
		a.logger.Info("summarization backend ready", "provider", backend.Name())
	}

	if stages&StageDedup != 0 {
		var opts []dedup.Option
		if a.cfg.Deduplication.UseLLMCheck {
			opts = append(opts, dedup.WithBorderlineCheck(a.cfg.Deduplication.BorderlineFloor, backend))
		}
		deps.Grouper = dedup.NewGrouper(a.cfg.Deduplication.TitleSimilarityThreshold, a.component("dedup"), opts...)
	}

	if stages&StageEnrich != 0 {
		var fetcher ports.ContentFetcher
		if a.cfg.Enrichment.FetchContent {
			fetcher = content.NewFetcher(a.cfg.Enrichment.FetchTimeout, a.cfg.Scan.UserAgent, a.cfg.Enrichment.ContentLimit, a.logger)
		}
		deps.Enricher = usecase.NewEnricher(backend, fetcher, a.cfg.Enrichment.MaxAttempts, a.component("enricher"))

		if a.cfg.Archive.DSN != "" {
			archive, err := a.openArchive(ctx)
			if err != nil {
				return nil, err
			}
			deps.Archive = archive
		}
	}

	if stages&StageDigest != 0 {
		tg := a.cfg.Notifications.Telegram
		if tg.BotToken != "" && tg.ChatID != "" {
			deps.Notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
		} else {
			a.logger.Warn("telegram is not configured, digest will not be published")
		}
	}

	return usecase.NewPipeline(deps), nil
}

// Schedule runs the full pipeline on the configured cron expression until ctx
// is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	pipeline, err := a.Pipeline(ctx, StageAll)
	if err != nil {
		return err
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.component("scheduler"))
	runner := usecase.NewScheduler(driver, pipeline, a.component("scheduler"))
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("waiting for scheduled runs", "next", driver.Next())

	<-ctx.Done()
	return runner.Stop(context.WithoutCancel(ctx))
}

// Close releases backend clients and database handles.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) newSource() ports.ArticleSource {
	client := &http.Client{Timeout: a.cfg.Scan.RequestTimeout}

	registry := scanner.NewRegistry(
		parser.NewRSSScanner(client, a.cfg.Scan.UserAgent),
		parser.NewScrapeScanner(client, a.cfg.Scan.UserAgent),
	)

	return parser.NewStrategySource(registry, a.cfg.Sources, a.cfg.Scan, a.component("source"))
}

func (a *Application) openArchive(ctx context.Context) (*storage.PostgresArchive, error) {
	db, err := sql.Open("postgres", a.cfg.Archive.DSN)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	archive := storage.NewPostgresArchive(db)
	if err := archive.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}
