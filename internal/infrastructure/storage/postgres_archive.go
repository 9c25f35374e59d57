package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const archiveTable = "digest_articles"

// Schema creates the archive table when it does not exist yet.
const Schema = `CREATE TABLE IF NOT EXISTS digest_articles (
    id              TEXT PRIMARY KEY,
    day             DATE NOT NULL,
    title_original  TEXT NOT NULL,
    url             TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    source_name     TEXT NOT NULL DEFAULT '',
    category        TEXT NOT NULL,
    published       TIMESTAMPTZ NOT NULL,
    title_he        TEXT,
    summary_he      TEXT,
    details_he      TEXT,
    sources         JSONB NOT NULL DEFAULT '[]',
    duplicate_count INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresArchive persists enriched canonical articles into Postgres.
type PostgresArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.Archive      = (*PostgresArchive)(nil)
	_ ports.ArchiveIndex = (*PostgresArchive)(nil)
)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the archive table.
func (r *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

// SaveDay upserts every article of the day in a single transaction.
func (r *PostgresArchive) SaveDay(ctx context.Context, day string, articles []domain.Article) error {
	if r.db == nil || len(articles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}

	for _, article := range articles {
		query, args, err := r.upsertQuery(day, article)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert article %s: %w", article.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// ArchivedIDs returns the subset of ids already present in the archive. The
// pipeline asks it before SaveDay to tell new records from updated ones.
func (r *PostgresArchive) ArchivedIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(ids) == 0 {
		return result, nil
	}

	query, args, err := r.builder.Select("id").From(archiveTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build archived query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archived: %w", err)
	}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

func (r *PostgresArchive) upsertQuery(day string, a domain.Article) (string, []any, error) {
	sources := a.Sources
	if sources == nil {
		sources = []domain.SourceRef{{Name: a.SourceName, URL: a.URL}}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return "", nil, fmt.Errorf("marshal sources of %s: %w", a.ID, err)
	}

	return r.builder.
		Insert(archiveTable).
		Columns("id", "day", "title_original", "url", "description", "source_name",
			"category", "published", "title_he", "summary_he", "details_he",
			"sources", "duplicate_count").
		Values(a.ID, day, a.TitleOriginal, a.URL, a.Description, a.SourceName,
			string(a.Category), a.Published, a.TitleHe, a.SummaryHe, a.DetailsHe,
			string(sourcesJSON), max(a.DuplicateCount, 1)).
		Suffix(`ON CONFLICT (id) DO UPDATE
              SET title_he = EXCLUDED.title_he,
                  summary_he = EXCLUDED.summary_he,
                  details_he = EXCLUDED.details_he,
                  category = EXCLUDED.category,
                  sources = EXCLUDED.sources,
                  duplicate_count = EXCLUDED.duplicate_count,
                  updated_at = NOW()`).
		ToSql()
}
