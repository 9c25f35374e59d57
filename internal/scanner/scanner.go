package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"NewsDigest/internal/domain"
)

// Source describes one configured news source.
type Source struct {
	Name     string
	URL      string
	RSSURL   string
	Category domain.Category
}

// Request is one scan of one source.
type Request struct {
	Now            time.Time
	Source         Source
	MaxArticles    int
	MaxAge         time.Duration
	MaxDescription int
}

// Scanner captures a single collection strategy (rss, scrape).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Article, error)
}

// ErrUnknownMethod is returned for a collection method nothing registered.
var ErrUnknownMethod = errors.New("unknown collection method")

// Registry maps collection method names (the source "method" key) to scanners.
type Registry struct {
	byMethod map[string]Scanner
}

// NewRegistry returns a registry holding the given scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{byMethod: make(map[string]Scanner, len(scanners))}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds s under its Name, replacing an earlier scanner of that name.
func (r *Registry) Register(s Scanner) {
	if r.byMethod == nil {
		r.byMethod = map[string]Scanner{}
	}
	r.byMethod[strings.ToLower(s.Name())] = s
}

// Resolve looks a method up case-insensitively.
func (r *Registry) Resolve(method string) (Scanner, error) {
	if s, ok := r.byMethod[strings.ToLower(strings.TrimSpace(method))]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownMethod, method, strings.Join(r.Methods(), ", "))
}

// Methods lists the registered method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.byMethod))
	for name := range r.byMethod {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
