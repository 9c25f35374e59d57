package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Only Store is required; stages whose collaborator is nil are skipped.
type PipelineDeps struct {
	Source   ports.ArticleSource
	Store    ports.DayStore
	Grouper  *dedup.Grouper
	Enricher *Enricher
	Archive  ports.Archive
	Notifier ports.Notifier
	Digest   DigestOptions
	Logger   *slog.Logger
}

// Pipeline implements the daily collect, group, enrich and publish workflow.
// Every stage loads the whole day store, mutates it and writes it back, so a
// crash between stages leaves a store the next run can resume from. Only one
// run per day may be active at a time; concurrent runs overwrite each other.
type Pipeline struct {
	source   ports.ArticleSource
	store    ports.DayStore
	grouper  *dedup.Grouper
	enricher *Enricher
	archive  ports.Archive
	notifier ports.Notifier
	digest   DigestOptions
	logger   *slog.Logger
}

// ScanReport counts what one scan added to the store.
type ScanReport struct {
	Collected int
	Added     int
	Total     int
}

// DedupReport summarizes a grouping run.
type DedupReport struct {
	Before int
	After  int
	Merges int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   deps.Source,
		store:    deps.Store,
		grouper:  deps.Grouper,
		enricher: deps.Enricher,
		archive:  deps.Archive,
		notifier: deps.Notifier,
		digest:   deps.Digest,
		logger:   logger,
	}
}

// Scan collects fresh articles and appends those whose URL the day store does
// not know yet.
func (p *Pipeline) Scan(ctx context.Context, now time.Time) (ScanReport, error) {
	if p.source == nil {
		return ScanReport{}, fmt.Errorf("scan: no article source configured")
	}
	day := domain.DayKey(now)

	stored, _, err := p.store.Load(ctx, day)
	if err != nil {
		return ScanReport{}, fmt.Errorf("load day %s: %w", day, err)
	}

	collected, err := p.source.FetchDaily(ctx, now)
	if err != nil {
		return ScanReport{}, fmt.Errorf("fetch daily: %w", err)
	}

	merged, added := appendNew(stored, collected)
	if err := p.store.Save(ctx, day, merged); err != nil {
		return ScanReport{}, fmt.Errorf("save day %s: %w", day, err)
	}

	report := ScanReport{Collected: len(collected), Added: added, Total: len(merged)}
	p.logger.Info("scan complete", "day", day, "collected", report.Collected, "added", report.Added, "total", report.Total)
	return report, nil
}

// Dedup groups the day's articles into canonical stories and rewrites the
// store. A day without a store is nothing to do.
func (p *Pipeline) Dedup(ctx context.Context, day string) (DedupReport, error) {
	if p.grouper == nil {
		return DedupReport{}, fmt.Errorf("dedup: no grouper configured")
	}

	articles, found, err := p.store.Load(ctx, day)
	if err != nil {
		return DedupReport{}, fmt.Errorf("load day %s: %w", day, err)
	}
	if !found {
		p.logger.Info("no articles stored for day, nothing to group", "day", day)
		return DedupReport{}, nil
	}

	result := p.grouper.Group(ctx, articles)
	if err := p.store.Save(ctx, day, result.Articles); err != nil {
		return DedupReport{}, fmt.Errorf("save day %s: %w", day, err)
	}

	report := DedupReport{Before: len(articles), After: len(result.Articles), Merges: result.Merges}
	p.logger.Info("dedup complete", "day", day, "before", report.Before, "after", report.After, "merges", report.Merges)
	return report, nil
}

// Enrich fills missing summaries and rewrites the store once at the end of the
// pass, then archives the enriched day when an archive is configured. An
// archive failure is logged only.
func (p *Pipeline) Enrich(ctx context.Context, day string) (Report, error) {
	if p.enricher == nil {
		return Report{}, fmt.Errorf("enrich: no backend configured")
	}

	articles, found, err := p.store.Load(ctx, day)
	if err != nil {
		return Report{}, fmt.Errorf("load day %s: %w", day, err)
	}
	if !found {
		p.logger.Info("no articles stored for day, nothing to enrich", "day", day)
		return Report{}, nil
	}

	if pending(articles) > 0 {
		if tester, ok := p.enricher.backend.(ports.ConnectionTester); ok {
			if err := tester.TestConnection(ctx); err != nil {
				p.logger.Warn("backend connection test failed, continuing with fallbacks available", "backend", p.enricher.backend.Name(), "error", err)
			}
		}
	}

	report, err := p.enricher.Enrich(ctx, articles)
	if err != nil {
		return report, fmt.Errorf("enrich day %s: %w", day, err)
	}

	if report.Processed > 0 {
		if err := p.store.Save(ctx, day, articles); err != nil {
			return report, fmt.Errorf("save day %s: %w", day, err)
		}
	}

	p.logger.Info("enrichment complete",
		"day", day,
		"processed", report.Processed,
		"genuine", report.Genuine,
		"fallback", report.Fallback,
		"skipped", report.Skipped,
	)

	if p.archive != nil && len(articles) > 0 {
		p.archiveDay(ctx, day, articles)
	}
	return report, nil
}

// archiveDay copies the enriched day into the archive. The day store is
// already saved, so archive failures are logged and never fail the pass.
func (p *Pipeline) archiveDay(ctx context.Context, day string, articles []domain.Article) {
	var known map[string]bool
	if index, ok := p.archive.(ports.ArchiveIndex); ok {
		ids := make([]string, len(articles))
		for i, a := range articles {
			ids[i] = a.ID
		}
		found, err := index.ArchivedIDs(ctx, ids)
		if err != nil {
			p.logger.Warn("archive lookup failed", "day", day, "error", err)
		} else {
			known = found
		}
	}

	if err := p.archive.SaveDay(ctx, day, articles); err != nil {
		p.logger.Warn("archive failed, day store kept", "day", day, "error", err)
		return
	}

	if known == nil {
		p.logger.Info("day archived", "day", day, "articles", len(articles))
		return
	}
	updated := 0
	for _, a := range articles {
		if known[a.ID] {
			updated++
		}
	}
	p.logger.Info("day archived", "day", day, "new", len(articles)-updated, "updated", updated)
}

// Digest renders the day's store and hands it to the notifier.
func (p *Pipeline) Digest(ctx context.Context, day string) error {
	if p.notifier == nil {
		p.logger.Debug("no notifier configured, digest skipped", "day", day)
		return nil
	}

	articles, found, err := p.store.Load(ctx, day)
	if err != nil {
		return fmt.Errorf("load day %s: %w", day, err)
	}
	if !found || len(articles) == 0 {
		p.logger.Info("no articles stored for day, digest skipped", "day", day)
		return nil
	}

	message := buildDigestMessage(day, articles, p.digest)
	if err := p.notifier.PublishDigest(ctx, message); err != nil {
		return fmt.Errorf("publish digest %s: %w", day, err)
	}
	p.logger.Info("digest published", "day", day, "articles", len(articles))
	return nil
}

// Run executes every configured stage for the day containing now.
func (p *Pipeline) Run(ctx context.Context, now time.Time) error {
	day := domain.DayKey(now)

	if p.source != nil {
		if _, err := p.Scan(ctx, now); err != nil {
			return err
		}
	}
	if p.grouper != nil {
		if _, err := p.Dedup(ctx, day); err != nil {
			return err
		}
	}
	if p.enricher != nil {
		if _, err := p.Enrich(ctx, day); err != nil {
			return err
		}
	}
	return p.Digest(ctx, day)
}

// appendNew adds collected articles whose normalized URL is not yet present,
// in collection order.
func appendNew(stored, collected []domain.Article) ([]domain.Article, int) {
	known := make(map[string]struct{}, len(stored)+len(collected))
	for _, a := range stored {
		known[domain.NormalizeURL(a.URL)] = struct{}{}
		for _, src := range a.Sources {
			known[domain.NormalizeURL(src.URL)] = struct{}{}
		}
	}

	merged := make([]domain.Article, 0, len(stored)+len(collected))
	merged = append(merged, stored...)

	added := 0
	for _, a := range collected {
		key := domain.NormalizeURL(a.URL)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		merged = append(merged, a)
		added++
	}
	return merged, added
}

func pending(articles []domain.Article) int {
	n := 0
	for _, a := range articles {
		if !a.Summarized() {
			n++
		}
	}
	return n
}
