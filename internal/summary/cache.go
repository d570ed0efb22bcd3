package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// SectionSummary is a generated summary of one section of a file.
type SectionSummary struct {
	Summary     string `json:"summary"`
	SourceHash  string `json:"sourceHash"`
	FileMtimeMs int64  `json:"fileMtimeMs"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// FileSummaryRecord holds every cached section summary for one file, along
// with the hash and modification time they were generated from.
type FileSummaryRecord struct {
	FilePath    string                    `json:"filePath"`
	FileHash    string                    `json:"fileHash"`
	FileMtimeMs int64                     `json:"fileMtimeMs"`
	Sections    map[string]SectionSummary `json:"sections"`
}

// FileSystem is the file access the cache needs.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	Stat(name string) (fs.FileInfo, error)
}

type osFileSystem struct{}

func (osFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (osFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// Cache stores section summaries per file path. It is safe for concurrent
// use; reads return copies and every write replaces a file record whole.
type Cache struct {
	mu    sync.RWMutex
	files map[string]FileSummaryRecord
	fsys  FileSystem
	now   func() time.Time
}

type CacheOption func(*Cache)

// WithFileSystem replaces the OS file system used for hashing and stat.
func WithFileSystem(fsys FileSystem) CacheOption {
	return func(c *Cache) {
		c.fsys = fsys
	}
}

// WithClock replaces the clock used to stamp refreshed summaries.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		files: make(map[string]FileSummaryRecord),
		fsys:  osFileSystem{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type freshness struct {
	hash    *string
	mtimeMs *int64
}

// Check constrains which cached records count as fresh.
type Check func(*freshness)

// MatchHash accepts a record only if it was built from content with hash h.
// It takes precedence over MatchMtime.
func MatchHash(h string) Check {
	return func(f *freshness) {
		f.hash = &h
	}
}

// MatchMtime accepts a record whose stored mtime is at least ms.
func MatchMtime(ms int64) Check {
	return func(f *freshness) {
		f.mtimeMs = &ms
	}
}

// GetSectionSummary returns the cached summary for a section. It reports
// false when the file has no record, the record fails the checks, or the
// section is unknown.
func (c *Cache) GetSectionSummary(filePath, sectionID string, checks ...Check) (SectionSummary, bool) {
	var f freshness
	for _, check := range checks {
		check(&f)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.files[filePath]
	if !ok || !record.fresh(f) {
		return SectionSummary{}, false
	}
	s, ok := record.Sections[sectionID]
	return s, ok
}

func (r FileSummaryRecord) fresh(f freshness) bool {
	if f.hash != nil {
		return r.FileHash == *f.hash
	}
	if f.mtimeMs != nil {
		return r.FileMtimeMs >= *f.mtimeMs
	}
	return true
}

// UpsertSectionSummary stores s for the section, creating the file record if
// needed. The record adopts the summary's hash and mtime.
func (c *Cache) UpsertSectionSummary(filePath, sectionID string, s SectionSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.files[filePath]
	if ok {
		record = record.clone()
	} else {
		record = FileSummaryRecord{FilePath: filePath}
	}
	if record.Sections == nil {
		record.Sections = make(map[string]SectionSummary)
	}
	record.Sections[sectionID] = s
	record.FileHash = s.SourceHash
	record.FileMtimeMs = s.FileMtimeMs
	c.files[filePath] = record
}

// InvalidateFile drops every summary cached for filePath.
func (c *Cache) InvalidateFile(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, filePath)
}

// RefreshFileSummaries hashes and stats the file, then replaces its cached
// sections with summaries stamped with the current hash, mtime and time.
// File errors are returned and leave the cache untouched.
func (c *Cache) RefreshFileSummaries(filePath string, summaries map[string]string) (FileSummaryRecord, error) {
	hash, err := c.HashFile(filePath)
	if err != nil {
		return FileSummaryRecord{}, err
	}
	mtimeMs, err := c.fileMtimeMs(filePath)
	if err != nil {
		return FileSummaryRecord{}, err
	}

	record := FileSummaryRecord{
		FilePath:    filePath,
		FileHash:    hash,
		FileMtimeMs: mtimeMs,
		Sections:    make(map[string]SectionSummary, len(summaries)),
	}
	now := c.now().UnixMilli()
	for id, text := range summaries {
		record.Sections[id] = SectionSummary{
			Summary:     text,
			SourceHash:  hash,
			FileMtimeMs: mtimeMs,
			UpdatedAt:   now,
		}
	}

	c.mu.Lock()
	c.files[filePath] = record
	c.mu.Unlock()

	return record.clone(), nil
}

// IsFileStale reports whether the file changed on disk after its summaries
// were generated. A file without a record is stale. Stat errors are returned.
func (c *Cache) IsFileStale(filePath string) (bool, error) {
	c.mu.RLock()
	record, ok := c.files[filePath]
	c.mu.RUnlock()
	if !ok {
		return true, nil
	}

	mtimeMs, err := c.fileMtimeMs(filePath)
	if err != nil {
		return false, err
	}
	return mtimeMs > record.FileMtimeMs, nil
}

// IsContentStale reports whether content differs from what the file's
// summaries were generated from.
func (c *Cache) IsContentStale(filePath, content string) bool {
	c.mu.RLock()
	record, ok := c.files[filePath]
	c.mu.RUnlock()
	if !ok {
		return true
	}
	return HashContent(content) != record.FileHash
}

// HashFile returns the hex SHA-256 of the file's contents.
func (c *Cache) HashFile(filePath string) (string, error) {
	data, err := c.fsys.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return hashBytes(data), nil
}

func (c *Cache) fileMtimeMs(filePath string) (int64, error) {
	info, err := c.fsys.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	return info.ModTime().UnixMilli(), nil
}

// Record returns a copy of the record for filePath.
func (c *Cache) Record(filePath string) (FileSummaryRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.files[filePath]
	if !ok {
		return FileSummaryRecord{}, false
	}
	return record.clone(), true
}

// Records returns copies of all records ordered by file path.
func (c *Cache) Records() []FileSummaryRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]FileSummaryRecord, 0, len(c.files))
	for _, r := range c.files {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

// Restore installs a previously saved record, replacing any existing one.
func (c *Cache) Restore(record FileSummaryRecord) {
	record = record.clone()
	if record.Sections == nil {
		record.Sections = make(map[string]SectionSummary)
	}
	c.mu.Lock()
	c.files[record.FilePath] = record
	c.mu.Unlock()
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string]FileSummaryRecord)
}

func (r FileSummaryRecord) clone() FileSummaryRecord {
	r.Sections = maps.Clone(r.Sections)
	return r
}

// FileKey returns the key summaries of path are cached under. It is the
// absolute path when that resolves, the cleaned path otherwise.
func FileKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content string) string {
	return hashBytes([]byte(content))
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
