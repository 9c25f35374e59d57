package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// ArticleSource pulls fresh raw articles from every configured source.
type ArticleSource interface {
	FetchDaily(ctx context.Context, now time.Time) ([]domain.Article, error)
}

// DayStore persists the full article list of one UTC day. Load reports
// found=false when nothing has been stored for the day yet.
type DayStore interface {
	Load(ctx context.Context, day string) (articles []domain.Article, found bool, err error)
	Save(ctx context.Context, day string, articles []domain.Article) error
}

// SummaryRequest is the input handed to a summarization backend.
type SummaryRequest struct {
	Title    string
	Content  string
	Category domain.Category
}

// Summarizer is a stateless text-generation backend. Summarize must return an
// error for transport failures and unparseable payloads; a parseable but poor
// result (e.g. the title echoed back) is returned without error.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, req SummaryRequest) (domain.Enrichment, error)
	DuplicateChecker
}

// DuplicateChecker asks whether two titles describe the same story.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, titleA, titleB string) (bool, error)
}

// ConnectionTester is implemented by backends that can verify credentials
// before a pass starts.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// ContentFetcher extracts the readable body of a page. An empty string means
// nothing usable could be fetched.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Archive keeps enriched canonical articles for history and audit.
type Archive interface {
	SaveDay(ctx context.Context, day string, articles []domain.Article) error
}

// ArchiveIndex is implemented by archives that can tell which ids they hold.
type ArchiveIndex interface {
	ArchivedIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
