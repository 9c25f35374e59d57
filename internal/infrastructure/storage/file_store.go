package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// FileStore keeps one JSON file per day under dir.
//
// Writes go through a temp file and a rename, so readers see either the old
// or the new list. There is no locking: two concurrent runs on the same day
// overwrite each other and the last writer wins.
type FileStore struct {
	dir string
}

var _ ports.DayStore = (*FileStore)(nil)

// NewFileStore roots a store at dir; the directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing the given day.
func (s *FileStore) Path(day string) string {
	return filepath.Join(s.dir, day+".json")
}

// Load reads the day's articles. A missing file is reported as found=false.
func (s *FileStore) Load(_ context.Context, day string) ([]domain.Article, bool, error) {
	raw, err := os.ReadFile(s.Path(day))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read day store %s: %w", day, err)
	}

	articles, err := decodeArticles(raw)
	if err != nil {
		return nil, false, fmt.Errorf("day store %s: %w", day, err)
	}
	return articles, true, nil
}

// Save atomically replaces the day's file.
func (s *FileStore) Save(_ context.Context, day string, articles []domain.Article) error {
	payload, err := encodeArticles(articles)
	if err != nil {
		return fmt.Errorf("day store %s: %w", day, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, day+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(day)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace day store %s: %w", day, err)
	}
	return nil
}

func encodeArticles(articles []domain.Article) ([]byte, error) {
	if articles == nil {
		articles = []domain.Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return nil, fmt.Errorf("encode articles: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeArticles(raw []byte) ([]domain.Article, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []domain.Article{}, nil
	}

	var articles []domain.Article
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return articles, nil
}
