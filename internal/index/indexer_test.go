package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"docctx/internal/crawler"
	"docctx/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexer_BuildCorpus(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 12; i++ {
		path := filepath.Join(root, fmt.Sprintf("doc%02d.md", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("# Doc %d\n\nBody %d.", i, i)), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.pdf"), []byte("garbage"), 0o644))

	ext := extractor.NewExtractor()
	docs, err := NewIndexer(crawler.NewCrawler(ext), ext, nil).BuildCorpus(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, docs, 12, "unreadable files are skipped")
	for i, d := range docs {
		assert.Equal(t, fmt.Sprintf("doc%02d.md", i), d.ID)
		assert.Equal(t, fmt.Sprintf("# Doc %d\n\nBody %d.", i, i), d.Content)
	}
}

func TestIndexer_Cancelled(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ext := extractor.NewExtractor()
	_, err := NewIndexer(crawler.NewCrawler(ext), ext, nil).BuildCorpus(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexer_MissingRoot(t *testing.T) {
	ext := extractor.NewExtractor()
	_, err := NewIndexer(crawler.NewCrawler(ext), ext, nil).BuildCorpus(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
