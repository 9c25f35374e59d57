package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	// DefaultMaxAttempts is the backend call budget per article.
	DefaultMaxAttempts = 2
	// FallbackSummaryLimit caps the synthesized summary, in runes.
	FallbackSummaryLimit = 500
)

// errTitleEcho marks a backend reply whose summary is just the title.
var errTitleEcho = errors.New("summary echoes the title")

// Report counts the outcomes of one enrichment pass.
type Report struct {
	Processed int
	Genuine   int
	Fallback  int
	Skipped   int
}

// Enricher fills the generated fields of articles that lack a summary.
type Enricher struct {
	backend     ports.Summarizer
	fetcher     ports.ContentFetcher
	maxAttempts int
	logger      *slog.Logger
}

// NewEnricher wires a backend and an optional content fetcher.
func NewEnricher(backend ports.Summarizer, fetcher ports.ContentFetcher, maxAttempts int, logger *slog.Logger) *Enricher {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		backend:     backend,
		fetcher:     fetcher,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Enrich updates articles in place. Every article it touches ends with all
// enrichment fields set, either from the backend or from the fallback; already
// summarized articles are left alone. Only context cancellation stops the
// pass early, and the caller should then discard the partial result.
func (e *Enricher) Enrich(ctx context.Context, articles []domain.Article) (Report, error) {
	var report Report

	for i := range articles {
		article := &articles[i]
		if article.Summarized() {
			report.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		text := e.inputText(ctx, *article)
		enrichment, err := e.summarize(ctx, *article, text)
		report.Processed++

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			e.logger.Warn("enrichment fell back",
				"id", article.ID,
				"title", article.TitleOriginal,
				"backend", e.backend.Name(),
				"error", err,
			)
			enrichment = fallback(*article, text)
			report.Fallback++
		} else {
			report.Genuine++
		}

		if strings.TrimSpace(enrichment.Title) == "" {
			enrichment.Title = article.TitleOriginal
		}
		article.Apply(enrichment)
	}

	return report, nil
}

// inputText prefers the fetched body when it is at least as long as the
// description.
func (e *Enricher) inputText(ctx context.Context, a domain.Article) string {
	text := a.Description
	if e.fetcher != nil && a.URL != "" {
		if body := e.fetcher.Fetch(ctx, a.URL); body != "" && len(body) >= len(text) {
			text = body
		}
	}
	if strings.TrimSpace(text) == "" {
		return a.TitleOriginal
	}
	return text
}

func (e *Enricher) summarize(ctx context.Context, a domain.Article, text string) (domain.Enrichment, error) {
	req := ports.SummaryRequest{
		Title:    a.TitleOriginal,
		Content:  text,
		Category: a.Category,
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		enrichment, err := e.backend.Summarize(ctx, req)
		if err == nil && strings.TrimSpace(enrichment.Summary) == strings.TrimSpace(a.TitleOriginal) {
			err = errTitleEcho
		}
		if err == nil {
			return enrichment, nil
		}

		lastErr = err
		e.logger.Debug("summarize attempt failed", "id", a.ID, "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return domain.Enrichment{}, fmt.Errorf("after %d attempts: %w", e.maxAttempts, lastErr)
}

// fallback synthesizes a degraded result from the input text.
func fallback(a domain.Article, text string) domain.Enrichment {
	summary := strings.TrimSpace(text)
	if summary == "" {
		summary = a.TitleOriginal
	}
	if runes := []rune(summary); len(runes) > FallbackSummaryLimit {
		summary = string(runes[:FallbackSummaryLimit])
	}
	return domain.Enrichment{
		Title:    a.TitleOriginal,
		Summary:  summary,
		Details:  "",
		Category: a.Category,
	}
}
