package dedup

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// DefaultThreshold is the title similarity at which two stories merge.
const DefaultThreshold = 0.8

// Result is the outcome of one grouping run.
type Result struct {
	Articles []domain.Article
	// Merges counts title-similarity merges; URL matches are not included.
	Merges int
}

// Grouper collapses duplicate coverage of one story into a canonical article.
//
// Grouping is left-biased: groups are compared by their first member's title,
// and a group keeps that title after absorbing others, so a chain A~B, B~C does
// not pull C into A unless A~C as well. A threshold of 0 merges everything into
// the first group.
type Grouper struct {
	threshold float64
	floor     float64
	checker   ports.DuplicateChecker
	logger    *slog.Logger
}

// Option customises a Grouper.
type Option func(*Grouper)

// WithBorderlineCheck asks checker to confirm pairs scoring in [floor, threshold).
func WithBorderlineCheck(floor float64, checker ports.DuplicateChecker) Option {
	return func(g *Grouper) {
		g.floor = floor
		g.checker = checker
	}
}

// NewGrouper builds a grouper merging titles scoring at least threshold.
func NewGrouper(threshold float64, logger *slog.Logger, opts ...Option) *Grouper {
	g := &Grouper{threshold: threshold, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group partitions articles into stories and returns one canonical article per
// story in first-seen order.
func (g *Grouper) Group(ctx context.Context, articles []domain.Article) Result {
	groups := groupByURL(articles)

	alive := make([]bool, len(groups))
	for i := range alive {
		alive[i] = true
	}

	merges := 0
	for i := range groups {
		if !alive[i] {
			continue
		}
		titleI := groups[i][0].TitleOriginal
		for j := i + 1; j < len(groups); j++ {
			if !alive[j] {
				continue
			}
			titleJ := groups[j][0].TitleOriginal
			score := TitleSimilarity(titleI, titleJ)
			if !g.sameStory(ctx, score, titleI, titleJ) {
				continue
			}
			g.info("title match", "score", score, "kept", truncate(titleI, 50), "merged", truncate(titleJ, 50))
			groups[i] = append(groups[i], groups[j]...)
			alive[j] = false
			merges++
		}
	}

	out := make([]domain.Article, 0, len(groups))
	for i, members := range groups {
		if alive[i] {
			out = append(out, collapse(members))
		}
	}

	g.info("grouping complete", "input", len(articles), "output", len(out), "merges", merges)
	return Result{Articles: out, Merges: merges}
}

func (g *Grouper) sameStory(ctx context.Context, score float64, titleA, titleB string) bool {
	if score >= g.threshold {
		return true
	}
	if g.checker == nil || score < g.floor {
		return false
	}
	same, err := g.checker.CheckDuplicate(ctx, titleA, titleB)
	if err != nil {
		g.warn("borderline duplicate check failed", "error", err)
		return false
	}
	return same
}

func groupByURL(articles []domain.Article) [][]domain.Article {
	var groups [][]domain.Article
	index := make(map[string]int, len(articles))
	for _, article := range articles {
		key := domain.NormalizeURL(article.URL)
		if idx, ok := index[key]; ok {
			groups[idx] = append(groups[idx], article)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []domain.Article{article})
	}
	return groups
}

// collapse picks the member with the longest description and folds every
// member's provenance into it. Members that are themselves the product of an
// earlier run contribute their recorded sources and counts.
func collapse(members []domain.Article) domain.Article {
	primary := members[0]
	longest := utf8.RuneCountInString(primary.Description)
	for _, m := range members[1:] {
		if n := utf8.RuneCountInString(m.Description); n > longest {
			primary, longest = m, n
		}
	}

	var sources []domain.SourceRef
	seen := make(map[string]struct{})
	count := 0
	for _, m := range members {
		refs := m.Sources
		if len(refs) == 0 {
			refs = []domain.SourceRef{{Name: m.SourceName, URL: m.URL}}
		}
		for _, ref := range refs {
			key := domain.NormalizeURL(ref.URL)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sources = append(sources, ref)
		}
		count += max(m.DuplicateCount, 1)
	}

	primary.Sources = sources
	primary.DuplicateCount = count
	return primary
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (g *Grouper) info(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}

func (g *Grouper) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
