package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
// A source that fails is logged and contributes nothing; it never aborts the
// others.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	scan     config.ScanConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, scan config.ScanConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		scan:     scan,
		logger:   log,
	}
}

// FetchDaily iterates over enabled sources and executes their scanners.
func (s *StrategySource) FetchDaily(ctx context.Context, now time.Time) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch daily", "sources", len(s.sources), "day", domain.DayKey(now))

	var aggregated []domain.Article
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return aggregated, err
		}
		if !src.IsEnabled() {
			s.debug("source disabled", "source", src.Name)
			continue
		}

		category := domain.Category(src.Category)
		if !category.Valid() {
			s.warn("source has unknown category", "source", src.Name, "category", src.Category)
			continue
		}

		strategy, err := s.registry.Resolve(src.ScanMethod())
		if err != nil {
			s.warn("source skipped", "source", src.Name, "error", err)
			continue
		}

		req := scanner.Request{
			Now: now,
			Source: scanner.Source{
				Name:     src.Name,
				URL:      src.URL,
				RSSURL:   src.RSSURL,
				Category: category,
			},
			MaxArticles:    s.scan.MaxArticlesPerSource,
			MaxAge:         time.Duration(s.scan.MaxAgeHours) * time.Hour,
			MaxDescription: s.scan.MaxDescriptionLength,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			s.warn("scan source failed", "source", src.Name, "method", strategy.Name(), "error", err)
			continue
		}

		for i := range results {
			results[i].SourceName = src.Name
			results[i].SourceURL = src.URL
		}
		s.debug("source produced articles", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
