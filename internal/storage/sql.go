package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultTable is the table used when none is given.
const DefaultTable = "vector_store"

const deleteBatchSize = 500

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures what differs between SQL backends: the schema, how an
// embedding is written to and read from its column, and bind placeholders.
type Dialect struct {
	Name   string
	Driver string

	// Schema returns the statements that create the table if missing.
	Schema func(table string) []string

	Encode func(embedding []float32) (any, error)
	Decode func(column any) ([]float32, error)

	// Placeholder returns the bind marker for the n-th parameter (1-based).
	Placeholder func(n int) string
}

// DialectFor resolves a dialect by name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return SQLiteDialect, nil
	case "postgres", "postgresql", "pgx", "pgvector":
		return PostgresDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver: %s", name)
	}
}

// SQLStore is a Store on top of database/sql. Rows are loaded and scored
// in process; the database only provides durable storage.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// Open connects with the dialect's driver and prepares the table.
func Open(ctx context.Context, dialect Dialect, dsn, table string) (*SQLStore, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s, err := NewSQLStore(ctx, db, dialect, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the table if needed. The
// caller keeps ownership of db unless it calls Close on the store.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	s := &SQLStore{db: db, dialect: dialect, table: table}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, q := range s.dialect.Schema(s.table) {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying handle so related tables can share it.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := s.dialect.Placeholder
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, metadata, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			text = excluded.text,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, s.table, p(1), p(2), p(3), p(4), p(5)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, r := range records {
		embedding, err := s.dialect.Encode(r.Embedding)
		if err != nil {
			return err
		}
		metadata, err := encodeMetadata(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.ID, embedding, r.Text, metadata, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLStore) Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, embedding, text, metadata FROM %s", s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r        Record
			column   any
			metadata sql.NullString
		)
		if err := rows.Scan(&r.ID, &column, &r.Text, &metadata); err != nil {
			return nil, err
		}
		if r.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		if !filter.Matches(r.Metadata) {
			continue
		}
		if r.Embedding, err = s.dialect.Decode(column); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rank(embedding, records, topK, nil), nil
}

// Delete removes ids in batches of deleteBatchSize so the IN list stays
// under the bind parameter limits of both backends.
func (s *SQLStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for start := 0; start < len(ids); start += deleteBatchSize {
		batch := ids[start:min(start+deleteBatchSize, len(ids))]

		marks := make([]string, len(batch))
		args := make([]any, len(batch))
		for i, id := range batch {
			marks[i] = s.dialect.Placeholder(i + 1)
			args[i] = id
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.table, strings.Join(marks, ", "))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteByFilter selects matching IDs in process and deletes them.
func (s *SQLStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, metadata FROM %s", s.table))
	if err != nil {
		return err
	}

	var ids []string
	for rows.Next() {
		var (
			id       string
			metadata sql.NullString
		)
		if err := rows.Scan(&id, &metadata); err != nil {
			rows.Close()
			return err
		}
		decoded, err := decodeMetadata(metadata)
		if err != nil {
			rows.Close()
			return err
		}
		if filter.Matches(decoded) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	return s.Delete(ctx, ids)
}

func encodeMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(column sql.NullString) (map[string]any, error) {
	metadata := map[string]any{}
	if !column.Valid || column.String == "" {
		return metadata, nil
	}
	if err := json.Unmarshal([]byte(column.String), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}
