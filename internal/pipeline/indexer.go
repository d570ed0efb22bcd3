package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docctx/internal/chunker"
	"docctx/internal/knowledge"
	"docctx/internal/storage"
)

const DefaultBatchSize = 16

// ErrEmbeddingCount is returned when an embedder does not return exactly one
// vector per input text.
var ErrEmbeddingCount = errors.New("embedding count mismatch")

// ErrPurgeUnsupported is returned by RemoveDocument when the store cannot
// delete by metadata.
var ErrPurgeUnsupported = errors.New("store does not support delete by filter")

// Metadata keys written on every indexed record.
const (
	MetaDocumentID = "documentId"
	MetaChunkType  = "chunkType"
	MetaStart      = "start"
	MetaEnd        = "end"
)

type embedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
type deleteByFilterFunc func(ctx context.Context, filter storage.Filter) error

// Indexer chunks documents, embeds the chunks and upserts them into a store.
// Optional store and embedder capabilities are resolved once by NewIndexer.
type Indexer struct {
	store     storage.Store
	embed     embedBatchFunc
	batched   bool
	purge     deleteByFilterFunc
	chunk     chunker.Func
	batchSize int
	logger    *slog.Logger
}

type Option func(*Indexer)

func WithChunker(fn chunker.Func) Option {
	return func(ix *Indexer) {
		if fn != nil {
			ix.chunk = fn
		}
	}
}

// WithBatchSize sets how many chunks go into one embedding call. Values
// below 1 are raised to 1.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		ix.batchSize = max(1, n)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

func NewIndexer(store storage.Store, embedder knowledge.Embedder, opts ...Option) *Indexer {
	ix := &Indexer{
		store:     store,
		chunk:     chunker.ChunkDocument,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}

	if be, ok := embedder.(knowledge.BatchEmbedder); ok {
		ix.embed = be.EmbedBatch
		ix.batched = true
	} else {
		ix.embed = sequentialEmbed(embedder)
	}
	if fd, ok := store.(storage.FilterDeleter); ok {
		ix.purge = fd.DeleteByFilter
	}

	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// SupportsPurge reports whether the store can delete a document's records.
func (ix *Indexer) SupportsPurge() bool {
	return ix.purge != nil
}

// RemoveDocument deletes every record stored for documentID.
func (ix *Indexer) RemoveDocument(ctx context.Context, documentID string) error {
	if ix.purge == nil {
		return ErrPurgeUnsupported
	}
	if err := ix.purge(ctx, storage.Filter{MetaDocumentID: documentID}); err != nil {
		return fmt.Errorf("failed to purge %s: %w", documentID, err)
	}
	return nil
}

// IndexDocument chunks and embeds content and upserts one record per chunk.
// With resetExisting, records previously stored for documentID are deleted
// first when the store supports it. The records are upserted in a single
// call after every batch has been embedded; any error aborts the run.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID, content string, resetExisting bool) ([]storage.Record, error) {
	if resetExisting && ix.purge != nil {
		if err := ix.purge(ctx, storage.Filter{MetaDocumentID: documentID}); err != nil {
			return nil, fmt.Errorf("failed to purge %s: %w", documentID, err)
		}
	}

	chunks := ix.chunk(content)
	records := make([]storage.Record, 0, len(chunks))

	for start := 0; start < len(chunks); start += ix.batchSize {
		batch := chunks[start:min(start+ix.batchSize, len(chunks))]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vecs, err := ix.embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks of %s: %w", documentID, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrEmbeddingCount, len(vecs), len(batch))
		}

		for i, c := range batch {
			records = append(records, storage.Record{
				ID:        RecordID(documentID, c, start+i),
				Embedding: vecs[i],
				Text:      c.Text,
				Metadata: map[string]any{
					MetaDocumentID: documentID,
					MetaChunkType:  string(c.Type),
					MetaStart:      c.Start,
					MetaEnd:        c.End,
				},
			})
		}
	}

	if len(records) > 0 {
		if err := ix.store.Upsert(ctx, records); err != nil {
			return nil, fmt.Errorf("failed to upsert %s: %w", documentID, err)
		}
	}

	ix.logger.Debug("indexed document",
		"document", documentID,
		"chunks", len(records),
		"batched", ix.batched,
		"reset", resetExisting && ix.purge != nil,
	)
	return records, nil
}

// RecordID is the deterministic ID of the chunk at position index.
func RecordID(documentID string, c chunker.Chunk, index int) string {
	return fmt.Sprintf("%s:%s:%d:%d-%d", documentID, c.Type, index, c.Start, c.End)
}

// Options bundles the arguments of IndexDocument for one-off calls.
type Options struct {
	DocumentID    string
	Content       string
	Store         storage.Store
	Embedder      knowledge.Embedder
	Chunker       chunker.Func
	BatchSize     int
	ResetExisting bool
}

// IndexDocument indexes a single document without keeping an Indexer.
func IndexDocument(ctx context.Context, opts Options) ([]storage.Record, error) {
	var o []Option
	if opts.Chunker != nil {
		o = append(o, WithChunker(opts.Chunker))
	}
	if opts.BatchSize != 0 {
		o = append(o, WithBatchSize(opts.BatchSize))
	}
	return NewIndexer(opts.Store, opts.Embedder, o...).IndexDocument(ctx, opts.DocumentID, opts.Content, opts.ResetExisting)
}

func sequentialEmbed(e knowledge.Embedder) embedBatchFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, 0, len(texts))
		for _, text := range texts {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			out = append(out, vec)
		}
		return out, nil
	}
}
