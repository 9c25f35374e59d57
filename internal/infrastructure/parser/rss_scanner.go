package parser

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

// RSSScanner reads RSS/Atom feeds.
type RSSScanner struct {
	client    *http.Client
	userAgent string
	policy    *bluemonday.Policy
}

// NewRSSScanner wires an HTTP client; a nil client gets a 15s timeout.
func NewRSSScanner(client *http.Client, userAgent string) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSScanner{
		client:    client,
		userAgent: userAgent,
		policy:    bluemonday.StrictPolicy(),
	}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan parses the source feed and returns its recent items. Items older than
// the age window are dropped; undated items are stamped with the scan time.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if req.Source.RSSURL == "" {
		return nil, fmt.Errorf("source %s has no rss url", req.Source.Name)
	}

	fp := gofeed.NewParser()
	fp.Client = s.client
	if s.userAgent != "" {
		fp.UserAgent = s.userAgent
	}

	feed, err := fp.ParseURLWithContext(req.Source.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.Source.RSSURL, err)
	}

	items := feed.Items
	if req.MaxArticles > 0 && len(items) > req.MaxArticles {
		items = items[:req.MaxArticles]
	}

	now := req.Now.UTC()
	results := make([]domain.Article, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		published := now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}
		if req.MaxAge > 0 && now.Sub(published) > req.MaxAge {
			continue
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		results = append(results, domain.Article{
			ID:            domain.GenerateID(link, title, published.Format(time.RFC3339)),
			TitleOriginal: title,
			URL:           link,
			Description:   s.plainText(description, req.MaxDescription),
			Category:      req.Source.Category,
			Published:     published,
			FetchedAt:     now,
		})
	}

	return results, nil
}

// plainText strips markup; bluemonday escapes text nodes, so entities are
// decoded afterwards.
func (s *RSSScanner) plainText(raw string, limit int) string {
	text := strings.Join(strings.Fields(s.policy.Sanitize(raw)), " ")
	text = html.UnescapeString(text)
	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit])
		}
	}
	return text
}
