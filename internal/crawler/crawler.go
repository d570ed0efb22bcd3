package crawler

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"docctx/internal/extractor"
)

// Crawler scans a directory for document files the extractor can read.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor) *Crawler {
	return &Crawler{
		extractor: ext,
		ignored:   []string{".git", "vendor", "node_modules", "testdata", "_examples"},
	}
}

// Ignore adds directory names to skip.
func (c *Crawler) Ignore(names ...string) {
	c.ignored = append(c.ignored, names...)
}

// ScanProject walks root in lexical order and calls onFile for every
// supported document. Hidden directories are skipped. An error returned by
// onFile stops the walk.
func (c *Crawler) ScanProject(root string, onFile func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (slices.Contains(c.ignored, name) || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.extractor.Supports(path) {
			return nil
		}
		return onFile(path)
	})
}
