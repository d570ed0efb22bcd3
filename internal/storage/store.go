package storage

import (
	"context"
	"errors"
)

// ErrInvalidTable is returned when a table name is not a plain SQL identifier.
var ErrInvalidTable = errors.New("invalid table name")

// Record is an embedded chunk of text with its metadata.
type Record struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
}

// Match is a record scored against a query vector.
type Match struct {
	Record
	Score float64 `json:"score"`
}

// Store persists records and answers similarity queries.
type Store interface {
	// Upsert inserts records, replacing any existing record with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK records matching filter, ordered by descending
	// cosine similarity to embedding. Equal scores keep storage order.
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error)

	// Delete removes the records with the given IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	Close() error
}

// FilterDeleter is implemented by stores that can delete by metadata.
type FilterDeleter interface {
	DeleteByFilter(ctx context.Context, filter Filter) error
}
