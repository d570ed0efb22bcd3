package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"docctx/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.Upsert(ctx, testRecords()))

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-a:heading:0:0-7", matches[0].ID)
	assert.Equal(t, []float32{1, 0, 0}, matches[0].Embedding)
	assert.Equal(t, "# Title", matches[0].Text)
	assert.Equal(t, "doc-a", matches[0].Metadata["documentId"])
	assert.Equal(t, float64(0), matches[0].Metadata["start"])
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.Upsert(ctx, []Record{{ID: "r1", Embedding: []float32{1, 0}, Text: "old"}}))
	require.NoError(t, store.Upsert(ctx, []Record{{ID: "r1", Embedding: []float32{0, 1}, Text: "new"}}))

	matches, err := store.Query(ctx, []float32{0, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
	assert.Empty(t, matches[0].Metadata)
}

func TestSQLiteStore_Filters(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Upsert(ctx, testRecords()))

	// Integers come back as float64 from JSON; filters written with ints still match.
	matches, err := store.Query(ctx, []float32{1, 0, 0}, 10, Filter{"documentId": "doc-a", "start": 9})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a:paragraph:1:9-40"}, ids(matches))

	require.NoError(t, store.DeleteByFilter(ctx, Filter{"documentId": "doc-a"}))
	matches, err = store.Query(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-b:paragraph:0:0-10"}, ids(matches))
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Upsert(ctx, testRecords()))

	require.NoError(t, store.Delete(ctx, []string{"doc-a:heading:0:0-7", "doc-b:paragraph:0:0-10"}))
	require.NoError(t, store.Delete(ctx, nil))

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a:paragraph:1:9-40"}, ids(matches))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := NewSQLiteStore(ctx, path, "chunks_v1")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, testRecords()))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(ctx, path, "chunks_v1")
	require.NoError(t, err)
	defer store.Close()

	matches, err := store.Query(ctx, []float32{0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-b:paragraph:0:0-10", matches[0].ID)
}

func TestSQLiteStore_InvalidTable(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "x.db"), "bad; DROP TABLE x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTable))
}

func TestSQLiteStore_AdapterErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	require.NoError(t, store.DB().Close())

	_, err := store.Query(ctx, []float32{1}, 1, nil)
	assert.ErrorContains(t, err, "sql: database is closed")
	assert.Error(t, store.Upsert(ctx, testRecords()))
}

func TestFloat32BlobCodec(t *testing.T) {
	in := []float32{0.25, -1.5, 3e-7}
	encoded, err := encodeFloat32Blob(in)
	require.NoError(t, err)
	assert.Len(t, encoded, 12)

	out, err := decodeFloat32Blob(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeFloat32Blob([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = decodeFloat32Blob(42)
	assert.Error(t, err)
}

func TestSummaryStore(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	summaries, err := NewSummaryStore(ctx, store.DB(), SQLiteDialect)
	require.NoError(t, err)

	record := summary.FileSummaryRecord{
		FilePath:    "docs/guide.md",
		FileHash:    "abc",
		FileMtimeMs: 1234,
		Sections: map[string]summary.SectionSummary{
			"s1": {Summary: "first", SourceHash: "abc", FileMtimeMs: 1234, UpdatedAt: 99},
		},
	}
	require.NoError(t, summaries.Save(ctx, record))
	record.FileHash = "def"
	require.NoError(t, summaries.Save(ctx, record))

	cache := summary.NewCache()
	n, err := summaries.Load(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok := cache.Record("docs/guide.md")
	require.True(t, ok)
	assert.Equal(t, record, got)

	require.NoError(t, summaries.Delete(ctx, "docs/guide.md"))
	cache.Reset()
	n, err = summaries.Load(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewSQLStore_SharedHandle(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	a, err := NewSQLStore(context.Background(), db, SQLiteDialect, "first")
	require.NoError(t, err)
	b, err := NewSQLStore(context.Background(), db, SQLiteDialect, "second")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Upsert(ctx, []Record{{ID: "only-a", Embedding: []float32{1}}}))

	matches, err := b.Query(ctx, []float32{1}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
