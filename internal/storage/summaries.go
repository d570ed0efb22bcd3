package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docctx/internal/summary"
)

// SummaryStore persists summary cache records next to the vector table so
// the cache survives process restarts.
type SummaryStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSummaryStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SummaryStore, error) {
	s := &SummaryStore{db: db, dialect: dialect}
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS summaries (
		file_path TEXT PRIMARY KEY,
		file_hash TEXT NOT NULL,
		file_mtime_ms BIGINT NOT NULL,
		sections TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to init summaries table: %w", err)
	}
	return s, nil
}

// Load restores every saved record into cache.
func (s *SummaryStore) Load(ctx context.Context, cache *summary.Cache) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_path, file_hash, file_mtime_ms, sections FROM summaries")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			r        summary.FileSummaryRecord
			sections string
		)
		if err := rows.Scan(&r.FilePath, &r.FileHash, &r.FileMtimeMs, &sections); err != nil {
			return n, err
		}
		if err := json.Unmarshal([]byte(sections), &r.Sections); err != nil {
			return n, fmt.Errorf("failed to decode sections for %s: %w", r.FilePath, err)
		}
		cache.Restore(r)
		n++
	}
	return n, rows.Err()
}

// Save writes the record, replacing any saved version.
func (s *SummaryStore) Save(ctx context.Context, r summary.FileSummaryRecord) error {
	sections, err := json.Marshal(r.Sections)
	if err != nil {
		return err
	}

	p := s.dialect.Placeholder
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO summaries (file_path, file_hash, file_mtime_ms, sections)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT(file_path) DO UPDATE SET
			file_hash = excluded.file_hash,
			file_mtime_ms = excluded.file_mtime_ms,
			sections = excluded.sections
	`, p(1), p(2), p(3), p(4)), r.FilePath, r.FileHash, r.FileMtimeMs, string(sections))
	return err
}

// Delete removes the saved record for filePath.
func (s *SummaryStore) Delete(ctx context.Context, filePath string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM summaries WHERE file_path = %s", s.dialect.Placeholder(1)), filePath)
	return err
}
