package usecase

import (
	"fmt"
	"sort"
	"strings"

	"NewsDigest/internal/domain"
)

// DigestOptions shapes the rendered digest.
type DigestOptions struct {
	MaxArticles   int
	SummaryLength int
	DashboardURL  string
}

var digestSections = []struct {
	category domain.Category
	heading  string
}{
	{domain.CategoryAI, "AI"},
	{domain.CategoryCyber, "Cyber"},
}

// buildDigestMessage renders the newest articles of the day, split by
// category.
func buildDigestMessage(day string, articles []domain.Article, opts DigestOptions) string {
	if len(articles) == 0 {
		return ""
	}

	sorted := make([]domain.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})
	if opts.MaxArticles > 0 && len(sorted) > opts.MaxArticles {
		sorted = sorted[:opts.MaxArticles]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily digest %s (%d stories)\n", day, len(sorted))

	for _, section := range digestSections {
		var items []domain.Article
		for _, a := range sorted {
			if a.Category == section.category {
				items = append(items, a)
			}
		}
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n%s (%d)\n", section.heading, len(items))
		for _, a := range items {
			fmt.Fprintf(&b, "- %s\n", a.DisplayTitle())
			if summary := digestSummary(a, opts.SummaryLength); summary != "" {
				fmt.Fprintf(&b, "%s\n", summary)
			}
			if a.DuplicateCount > 1 {
				fmt.Fprintf(&b, "%s (%d sources)\n\n", a.URL, len(a.Sources))
			} else {
				fmt.Fprintf(&b, "%s\n\n", a.URL)
			}
		}
	}

	if opts.DashboardURL != "" {
		fmt.Fprintf(&b, "\nMore: %s\n", opts.DashboardURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// digestSummary uses the generated summary unless it is missing or just the
// title, in which case the raw description stands in.
func digestSummary(a domain.Article, limit int) string {
	summary := ""
	if a.SummaryHe != nil {
		summary = strings.TrimSpace(*a.SummaryHe)
	}
	if summary == "" || summary == strings.TrimSpace(a.TitleOriginal) {
		summary = strings.TrimSpace(a.Description)
	}
	return truncateWords(summary, limit)
}

// truncateWords cuts s to at most limit runes on a word boundary.
func truncateWords(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
