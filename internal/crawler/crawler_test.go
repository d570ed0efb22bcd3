package crawler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docctx/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestCrawler_ScanProject(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"README.md",
		"docs/guide.md",
		"docs/paper.pdf",
		"docs/notes.txt",
		"main.go",
		".git/HEAD.md",
		".cache/cached.md",
		"node_modules/pkg/readme.md",
		"drafts/wip.md",
	} {
		writeFile(t, root, rel)
	}

	c := NewCrawler(extractor.NewExtractor())
	c.Ignore("drafts")

	var found []string
	err := c.ScanProject(root, func(path string) error {
		rel, _ := filepath.Rel(root, path)
		found = append(found, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "docs/guide.md", "docs/notes.txt", "docs/paper.pdf"}, found)
}

func TestCrawler_StopsOnCallbackError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md")
	writeFile(t, root, "b.md")

	stop := errors.New("stop")
	calls := 0
	err := NewCrawler(extractor.NewExtractor()).ScanProject(root, func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestCrawler_ScanSelf(t *testing.T) {
	root, _ := filepath.Abs("../../")

	var found []string
	err := NewCrawler(extractor.NewExtractor()).ScanProject(root, func(path string) error {
		found = append(found, filepath.Base(path))
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, found, "DESIGN.md")
}
