package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type memStore struct {
	mu    sync.Mutex
	days  map[string][]domain.Article
	saves int
}

func newMemStore() *memStore {
	return &memStore{days: map[string][]domain.Article{}}
}

func (m *memStore) Load(_ context.Context, day string) ([]domain.Article, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	articles, ok := m.days[day]
	if !ok {
		return nil, false, nil
	}
	out := make([]domain.Article, len(articles))
	copy(out, articles)
	return out, true, nil
}

func (m *memStore) Save(_ context.Context, day string, articles []domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]domain.Article, len(articles))
	copy(stored, articles)
	m.days[day] = stored
	m.saves++
	return nil
}

type stubSource struct {
	articles []domain.Article
}

func (s stubSource) FetchDaily(context.Context, time.Time) ([]domain.Article, error) {
	return s.articles, nil
}

// scriptedBackend answers Summarize from a per-title script; titles without
// a script get a generic good enrichment.
type scriptedBackend struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []ports.SummaryRequest
	reply    func(req ports.SummaryRequest, attempt int) (domain.Enrichment, error)
	pingErr  error
	pings    int
}

var _ ports.ConnectionTester = (*scriptedBackend)(nil)

func newScriptedBackend(reply func(req ports.SummaryRequest, attempt int) (domain.Enrichment, error)) *scriptedBackend {
	return &scriptedBackend{calls: map[string]int{}, reply: reply}
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Summarize(_ context.Context, req ports.SummaryRequest) (domain.Enrichment, error) {
	b.mu.Lock()
	b.calls[req.Title]++
	attempt := b.calls[req.Title]
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.reply != nil {
		return b.reply(req, attempt)
	}
	return domain.Enrichment{
		Title:    "he: " + req.Title,
		Summary:  "summary of " + req.Title,
		Details:  "details of " + req.Title,
		Category: req.Category,
	}, nil
}

func (b *scriptedBackend) CheckDuplicate(context.Context, string, string) (bool, error) {
	return false, nil
}

func (b *scriptedBackend) TestConnection(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pings++
	return b.pingErr
}

func (b *scriptedBackend) totalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

var errBackendDown = errors.New("backend down")

type mapFetcher map[string]string

func (f mapFetcher) Fetch(_ context.Context, url string) string {
	return f[url]
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.messages = append(n.messages, digest)
	return nil
}

type recordingArchive struct {
	days map[string][]domain.Article
}

func (a *recordingArchive) SaveDay(_ context.Context, day string, articles []domain.Article) error {
	if a.days == nil {
		a.days = map[string][]domain.Article{}
	}
	a.days[day] = articles
	return nil
}

func rawArticle(url, title, description string, category domain.Category, published time.Time) domain.Article {
	return domain.Article{
		ID:            domain.GenerateID(url, title, published.Format(time.RFC3339)),
		TitleOriginal: title,
		URL:           url,
		Description:   description,
		SourceName:    "Source",
		SourceURL:     "https://source.example",
		Category:      category,
		Published:     published,
		FetchedAt:     published,
	}
}

type failingArchive struct {
	err   error
	calls int
}

func (a *failingArchive) SaveDay(context.Context, string, []domain.Article) error {
	a.calls++
	return a.err
}

// indexedArchive remembers saved ids so later passes see them as archived.
type indexedArchive struct {
	ids     map[string]bool
	lookups [][]string
}

func (a *indexedArchive) SaveDay(_ context.Context, _ string, articles []domain.Article) error {
	if a.ids == nil {
		a.ids = map[string]bool{}
	}
	for _, article := range articles {
		a.ids[article.ID] = true
	}
	return nil
}

func (a *indexedArchive) ArchivedIDs(_ context.Context, ids []string) (map[string]bool, error) {
	a.lookups = append(a.lookups, ids)
	found := map[string]bool{}
	for _, id := range ids {
		if a.ids[id] {
			found[id] = true
		}
	}
	return found, nil
}
