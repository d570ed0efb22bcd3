package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docctx/internal/extractor"
	"docctx/internal/knowledge"
	"docctx/internal/pipeline"
	"docctx/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSyncer struct {
	paths chan string
}

func (r *recordingSyncer) SyncFile(_ context.Context, path string) (pipeline.FileResult, error) {
	r.paths <- path
	return pipeline.FileResult{DocumentID: filepath.Base(path)}, nil
}

func nextPath(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync")
		return ""
	}
}

func startWatcher(t *testing.T, root string, syncer Syncer) {
	t.Helper()
	w, err := New(root, syncer, extractor.NewExtractor(), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
}

func TestWatcher_SyncsSupportedFiles(t *testing.T) {
	root := t.TempDir()
	syncer := &recordingSyncer{paths: make(chan string, 16)}
	startWatcher(t, root, syncer)

	require.NoError(t, os.WriteFile(filepath.Join(root, "0.go"), []byte("package x"), 0o644))
	doc := filepath.Join(root, "a.md")
	require.NoError(t, os.WriteFile(doc, []byte("# A"), 0o644))
	require.NoError(t, os.WriteFile(doc, []byte("# A\n\nagain"), 0o644))

	assert.Equal(t, doc, nextPath(t, syncer.paths), "unsupported files are ignored")

	require.NoError(t, os.Remove(doc))
	assert.Equal(t, doc, nextPath(t, syncer.paths))
}

func TestWatcher_NewDirectories(t *testing.T) {
	root := t.TempDir()
	syncer := &recordingSyncer{paths: make(chan string, 16)}
	startWatcher(t, root, syncer)

	dir := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// give the watcher time to pick up the directory
	time.Sleep(200 * time.Millisecond)

	doc := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Guide"), 0o644))
	assert.Equal(t, doc, nextPath(t, syncer.paths))
}

func TestWatcher_ReindexesIntoStore(t *testing.T) {
	root := t.TempDir()
	store := storage.NewMemoryStore()
	ext := extractor.NewExtractor()
	sync := pipeline.NewIncrementalSync(root, pipeline.NewIndexer(store, knowledge.NewHashEmbedder(16)), ext)

	w, err := New(root, sync, ext, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("# A\n\nSome text."), 0o644))
	assert.Eventually(t, func() bool { return store.Len() == 2 }, 5*time.Second, 20*time.Millisecond)
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), &recordingSyncer{}, extractor.NewExtractor())
	assert.Error(t, err)
}
