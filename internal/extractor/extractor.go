package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files no format extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is the plain text of one source file.
type Document struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Format      string `json:"format"`
	Content     string `json:"content"`
	ContentHash string `json:"contentHash"`
}

// FormatExtractor turns the raw bytes of one file format into text.
type FormatExtractor interface {
	Name() string
	Extensions() []string
	ExtractText(path string) (string, error)
}

// Extractor dispatches files to a FormatExtractor by extension.
type Extractor struct {
	byExt map[string]FormatExtractor
}

// NewExtractor registers the given format extractors. With none, it handles
// markdown, plain text and PDF.
func NewExtractor(formats ...FormatExtractor) *Extractor {
	if len(formats) == 0 {
		formats = []FormatExtractor{&TextExtractor{}, &PDFExtractor{}}
	}
	e := &Extractor{byExt: make(map[string]FormatExtractor)}
	for _, f := range formats {
		for _, ext := range f.Extensions() {
			e.byExt[strings.ToLower(ext)] = f
		}
	}
	return e
}

// Supports reports whether path has a registered extension.
func (e *Extractor) Supports(path string) bool {
	_, ok := e.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExtractFromFile reads path and returns its text as a Document. The
// document ID is the slash-separated path relative to root.
func (e *Extractor) ExtractFromFile(root, path string) (*Document, error) {
	f, ok := e.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	text, err := f.ExtractText(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	return &Document{
		ID:          DocumentID(root, path),
		Path:        path,
		Format:      f.Name(),
		Content:     text,
		ContentHash: hashText(text),
	}, nil
}

// DocumentID derives a stable document ID from a path relative to root.
func DocumentID(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// TextExtractor reads markdown and plain text files as they are.
type TextExtractor struct{}

func (*TextExtractor) Name() string { return "text" }

func (*TextExtractor) Extensions() []string {
	return []string{".md", ".markdown", ".txt", ".rst"}
}

func (*TextExtractor) ExtractText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
