package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docctx/internal/chunker"
	"docctx/internal/knowledge"
	"docctx/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDoc = "# Title\n\nParagraph one introduces the topic.\n\nFigure 1: Caption text for the diagram.\n\n## Section\n\nParagraph two continues the discussion.\n\n### References\n\n[1] Author A. Title of paper.\n\n[2] Author B. Another reference."

// mockEmbedder embeds one text per call.
type mockEmbedder struct {
	calls int
	fail  error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	return []float32{float32(len(text)), 1}, nil
}

// mockBatchEmbedder records the size of every batch.
type mockBatchEmbedder struct {
	mockEmbedder
	batches []int
	short   bool
}

func (m *mockBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, len(texts))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

// plainStore hides the optional delete-by-filter capability.
type plainStore struct {
	storage.Store
	upserts int
	fail    error
}

func (p *plainStore) Upsert(ctx context.Context, records []storage.Record) error {
	p.upserts++
	if p.fail != nil {
		return p.fail
	}
	return p.Store.Upsert(ctx, records)
}

func TestIndexDocument_Records(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	records, err := IndexDocument(ctx, Options{DocumentID: "doc", Content: testDoc, Store: store, Embedder: &mockEmbedder{}})
	require.NoError(t, err)
	require.Len(t, records, 7)

	assert.Equal(t, "doc:heading:0:0-7", records[0].ID)
	assert.Equal(t, "doc:reference:6:156-219", records[6].ID)
	assert.Equal(t, map[string]any{
		MetaDocumentID: "doc",
		MetaChunkType:  "heading",
		MetaStart:      0,
		MetaEnd:        7,
	}, records[0].Metadata)
	assert.Equal(t, []float32{7, 1}, records[0].Embedding)
	assert.Equal(t, 7, store.Len())

	for i, r := range records {
		assert.True(t, strings.HasPrefix(r.ID, "doc:"), "record %d", i)
	}
}

func TestIndexDocument_BatchedEmbedder(t *testing.T) {
	ctx := context.Background()
	embedder := &mockBatchEmbedder{}
	ix := NewIndexer(storage.NewMemoryStore(), embedder, WithBatchSize(3))

	records, err := ix.IndexDocument(ctx, "doc", testDoc, false)
	require.NoError(t, err)
	assert.Len(t, records, 7)
	assert.Equal(t, []int{3, 3, 1}, embedder.batches)
	assert.Zero(t, embedder.calls, "single-text Embed is not used when batching is available")
}

func TestIndexDocument_SequentialEmbedder(t *testing.T) {
	embedder := &mockEmbedder{}
	_, err := NewIndexer(storage.NewMemoryStore(), embedder, WithBatchSize(0)).IndexDocument(context.Background(), "doc", testDoc, false)
	require.NoError(t, err)
	assert.Equal(t, 7, embedder.calls)
}

func TestIndexDocument_IDsIndependentOfBatchSize(t *testing.T) {
	ctx := context.Background()
	var sets [][]string
	for _, size := range []int{1, 2, 16} {
		records, err := NewIndexer(storage.NewMemoryStore(), &mockBatchEmbedder{}, WithBatchSize(size)).IndexDocument(ctx, "doc", testDoc, false)
		require.NoError(t, err)
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		sets = append(sets, ids)
	}
	assert.Equal(t, sets[0], sets[1])
	assert.Equal(t, sets[0], sets[2])
}

func TestIndexDocument_ResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ix := NewIndexer(store, knowledge.NewHashEmbedder(32))
	require.True(t, ix.SupportsPurge())

	first, err := ix.IndexDocument(ctx, "doc", testDoc, true)
	require.NoError(t, err)
	second, err := ix.IndexDocument(ctx, "doc", testDoc, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, len(first), store.Len())

	// A shorter revision leaves no stale chunks behind.
	_, err = ix.IndexDocument(ctx, "doc", "# Title\n\nOnly this now.", true)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestIndexDocument_ResetWithoutCapability(t *testing.T) {
	ctx := context.Background()
	store := &plainStore{Store: storage.NewMemoryStore()}
	ix := NewIndexer(store, &mockEmbedder{})
	assert.False(t, ix.SupportsPurge())

	_, err := ix.IndexDocument(ctx, "doc", testDoc, true)
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts)
}

func TestIndexDocument_CustomChunker(t *testing.T) {
	split := func(content string) []chunker.Chunk {
		return []chunker.Chunk{{Type: chunker.TypeParagraph, Text: content, Start: 0, End: len(content)}}
	}
	records, err := IndexDocument(context.Background(), Options{
		DocumentID: "raw",
		Content:    "whole text",
		Store:      storage.NewMemoryStore(),
		Embedder:   &mockEmbedder{},
		Chunker:    split,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "raw:paragraph:0:0-10", records[0].ID)
}

func TestIndexDocument_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("embedder error aborts before upsert", func(t *testing.T) {
		store := &plainStore{Store: storage.NewMemoryStore()}
		_, err := NewIndexer(store, &mockEmbedder{fail: boom}).IndexDocument(ctx, "doc", testDoc, false)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, store.upserts)
	})

	t.Run("store error propagates", func(t *testing.T) {
		store := &plainStore{Store: storage.NewMemoryStore(), fail: boom}
		_, err := NewIndexer(store, &mockEmbedder{}).IndexDocument(ctx, "doc", testDoc, false)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("short embedding response", func(t *testing.T) {
		_, err := NewIndexer(storage.NewMemoryStore(), &mockBatchEmbedder{short: true}).IndexDocument(ctx, "doc", testDoc, false)
		assert.ErrorIs(t, err, ErrEmbeddingCount)
	})
}

func TestIndexDocument_EmptyContent(t *testing.T) {
	store := &plainStore{Store: storage.NewMemoryStore()}
	records, err := NewIndexer(store, &mockEmbedder{}).IndexDocument(context.Background(), "doc", "", false)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, store.upserts)
}

func TestIndexer_RemoveDocument(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ix := NewIndexer(store, knowledge.NewHashEmbedder(16))

	_, err := ix.IndexDocument(ctx, "a", testDoc, false)
	require.NoError(t, err)
	kept, err := ix.IndexDocument(ctx, "b", "# Other\n\nText.", false)
	require.NoError(t, err)

	require.NoError(t, ix.RemoveDocument(ctx, "a"))
	assert.Equal(t, len(kept), store.Len())

	plain := NewIndexer(&plainStore{Store: storage.NewMemoryStore()}, &mockEmbedder{})
	assert.ErrorIs(t, plain.RemoveDocument(ctx, "a"), ErrPurgeUnsupported)
}
