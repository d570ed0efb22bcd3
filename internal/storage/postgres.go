package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
)

// PostgresDialect stores embeddings in pgvector text form ("[1,2,3]") so the
// table works with or without the vector extension installed.
var PostgresDialect = Dialect{
	Name:   "postgres",
	Driver: "pgx",
	Schema: func(table string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				embedding TEXT NOT NULL,
				text TEXT NOT NULL,
				metadata TEXT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, table),
		}
	},
	Encode:      encodeVectorText,
	Decode:      decodeVectorText,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// NewPostgresStore connects to dsn through pgx.
func NewPostgresStore(ctx context.Context, dsn, table string) (*SQLStore, error) {
	return Open(ctx, PostgresDialect, dsn, table)
}

func encodeVectorText(embedding []float32) (any, error) {
	return pgvector.NewVector(embedding).Value()
}

func decodeVectorText(column any) ([]float32, error) {
	var text string
	switch c := column.(type) {
	case nil:
		return []float32{}, nil
	case string:
		text = c
	case []byte:
		text = string(c)
	default:
		return nil, fmt.Errorf("unexpected embedding column type %T", column)
	}
	if strings.TrimSpace(text) == "[]" {
		return []float32{}, nil
	}

	var v pgvector.Vector
	if err := v.Scan(text); err != nil {
		return nil, err
	}
	return v.Slice(), nil
}
