package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"docctx/internal/crawler"
	"docctx/internal/extractor"

	"golang.org/x/sync/errgroup"
)

// Indexer assembles the document corpus under a root directory.
type Indexer struct {
	crawler   *crawler.Crawler
	extractor *extractor.Extractor
	workers   int
	logger    *slog.Logger
}

// NewIndexer creates a new indexer.
func NewIndexer(c *crawler.Crawler, ext *extractor.Extractor, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		crawler:   c,
		extractor: ext,
		workers:   runtime.NumCPU(),
		logger:    logger,
	}
}

// BuildCorpus extracts every supported file under root. Files are read
// concurrently but returned in walk order. Files that fail to extract are
// logged and skipped.
func (i *Indexer) BuildCorpus(ctx context.Context, root string) ([]*extractor.Document, error) {
	var paths []string
	err := i.crawler.ScanProject(root, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	docs := make([]*extractor.Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, i.workers))

	for n, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := i.extractor.ExtractFromFile(root, path)
			if err != nil {
				i.logger.Warn("skipping document", "path", path, "error", err)
				return nil
			}
			docs[n] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}
