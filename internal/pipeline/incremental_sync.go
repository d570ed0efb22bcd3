package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docctx/internal/crawler"
	"docctx/internal/extractor"
	"docctx/internal/git"
	"docctx/internal/index"
	"docctx/internal/storage"
	"docctx/internal/summary"
)

// ChangeSource lists the files changed since baseRef in the repository at dir.
type ChangeSource func(ctx context.Context, dir, baseRef string) ([]git.ChangedFile, error)

// IncrementalSync brings the vector store and the summary cache in line with
// the files git reports as changed. Paths are taken relative to ProjectRoot,
// which is expected to be the repository top level.
type IncrementalSync struct {
	ProjectRoot string
	BaseRef     string

	indexer   *Indexer
	extractor *extractor.Extractor
	cache     *summary.Cache
	summaries *storage.SummaryStore
	changes   ChangeSource
	logger    *slog.Logger
}

// SyncReport summarizes one Run.
type SyncReport struct {
	FullResync bool
	Indexed    []string
	Removed    []string
	Skipped    []string
	Chunks     int
}

type updatePlan struct {
	Changes    []git.ChangedFile
	FullResync bool
}

type SyncOption func(*IncrementalSync)

// WithSummaries makes the sync invalidate summaries of changed files, both
// in cache and, when store is not nil, in their persisted form.
func WithSummaries(cache *summary.Cache, store *storage.SummaryStore) SyncOption {
	return func(s *IncrementalSync) {
		s.cache = cache
		s.summaries = store
	}
}

func WithBaseRef(ref string) SyncOption {
	return func(s *IncrementalSync) {
		if ref != "" {
			s.BaseRef = ref
		}
	}
}

func WithChangeSource(src ChangeSource) SyncOption {
	return func(s *IncrementalSync) {
		if src != nil {
			s.changes = src
		}
	}
}

func WithSyncLogger(logger *slog.Logger) SyncOption {
	return func(s *IncrementalSync) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewIncrementalSync(root string, ix *Indexer, ext *extractor.Extractor, opts ...SyncOption) *IncrementalSync {
	s := &IncrementalSync{
		ProjectRoot: root,
		BaseRef:     "HEAD",
		indexer:     ix,
		extractor:   ext,
		changes:     git.GetChangedFiles,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run applies the pending changes. With force and a clean tree, every
// document under ProjectRoot is reindexed instead.
func (s *IncrementalSync) Run(ctx context.Context, force bool) (*SyncReport, error) {
	plan, err := s.detectChangesStage(ctx, force)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{FullResync: plan.FullResync}
	if len(plan.Changes) == 0 && !plan.FullResync {
		fmt.Println("✅ No changes detected.")
		return report, nil
	}

	start := time.Now()
	if plan.FullResync {
		err = s.fullResyncStage(ctx, report)
	} else {
		err = s.changedFilesStage(ctx, plan.Changes, report)
	}
	if err != nil {
		return report, err
	}

	fmt.Printf("📊 Sync finished in %v: %d indexed (%d chunks), %d removed, %d skipped.\n",
		time.Since(start).Round(time.Millisecond), len(report.Indexed), report.Chunks, len(report.Removed), len(report.Skipped))
	return report, nil
}

func (s *IncrementalSync) detectChangesStage(ctx context.Context, force bool) (*updatePlan, error) {
	changes, err := s.changes(ctx, s.ProjectRoot, s.BaseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}

	fullResync := force && len(changes) == 0
	if fullResync {
		fmt.Println("🧭 No git changes detected. Running full sync from current documents (--force).")
	} else if len(changes) > 0 {
		fmt.Printf("📝 Detected %d changed files.\n", len(changes))
	}

	return &updatePlan{
		Changes:    changes,
		FullResync: fullResync,
	}, nil
}

func (s *IncrementalSync) changedFilesStage(ctx context.Context, changes []git.ChangedFile, report *SyncReport) error {
	for _, change := range changes {
		path := filepath.Join(s.ProjectRoot, filepath.FromSlash(change.Path))
		if !s.extractor.Supports(path) {
			continue
		}

		if change.Deleted {
			if err := s.RemoveFile(ctx, path); err != nil {
				return err
			}
			report.Removed = append(report.Removed, extractor.DocumentID(s.ProjectRoot, path))
			continue
		}

		res, err := s.SyncFile(ctx, path)
		if err != nil {
			return err
		}
		res.record(report)
	}
	return nil
}

func (s *IncrementalSync) fullResyncStage(ctx context.Context, report *SyncReport) error {
	fmt.Println("🔄 Building document corpus...")
	idx := index.NewIndexer(crawler.NewCrawler(s.extractor), s.extractor, s.logger)
	docs, err := idx.BuildCorpus(ctx, s.ProjectRoot)
	if err != nil {
		return fmt.Errorf("full sync corpus build failed: %w", err)
	}

	fmt.Printf("🧠 Reindexing %d documents...\n", len(docs))
	for _, doc := range docs {
		records, err := s.indexer.IndexDocument(ctx, doc.ID, doc.Content, true)
		if err != nil {
			return err
		}
		if err := s.invalidateSummaries(ctx, doc.Path); err != nil {
			return err
		}
		report.Indexed = append(report.Indexed, doc.ID)
		report.Chunks += len(records)
	}
	return nil
}

// FileResult is the outcome of syncing one file.
type FileResult struct {
	DocumentID string
	Removed    bool
	Skipped    bool
	Chunks     int
}

func (r FileResult) record(report *SyncReport) {
	switch {
	case r.Skipped:
		report.Skipped = append(report.Skipped, r.DocumentID)
	case r.Removed:
		report.Removed = append(report.Removed, r.DocumentID)
	default:
		report.Indexed = append(report.Indexed, r.DocumentID)
		report.Chunks += r.Chunks
	}
}

// SyncFile reindexes path, or removes its records when it no longer exists.
// Files that fail to extract are logged and skipped.
func (s *IncrementalSync) SyncFile(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{DocumentID: extractor.DocumentID(s.ProjectRoot, path)}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		res.Removed = true
		return res, s.RemoveFile(ctx, path)
	}

	doc, err := s.extractor.ExtractFromFile(s.ProjectRoot, path)
	if err != nil {
		s.logger.Warn("skipping document", "path", path, "error", err)
		res.Skipped = true
		return res, nil
	}

	records, err := s.indexer.IndexDocument(ctx, doc.ID, doc.Content, true)
	if err != nil {
		return res, err
	}
	res.Chunks = len(records)
	fmt.Printf("  -> %s: %d chunks\n", doc.ID, len(records))

	return res, s.invalidateSummaries(ctx, path)
}

// RemoveFile drops the records and summaries of a deleted file.
func (s *IncrementalSync) RemoveFile(ctx context.Context, path string) error {
	id := extractor.DocumentID(s.ProjectRoot, path)
	err := s.indexer.RemoveDocument(ctx, id)
	switch {
	case errors.Is(err, ErrPurgeUnsupported):
		s.logger.Warn("store cannot purge documents, stale records kept", "document", id)
	case err != nil:
		return err
	default:
		fmt.Printf("  -> %s: removed\n", id)
	}
	return s.invalidateSummaries(ctx, path)
}

// invalidateSummaries drops the summaries cached under path's file key.
func (s *IncrementalSync) invalidateSummaries(ctx context.Context, path string) error {
	if s.cache == nil {
		return nil
	}
	path = summary.FileKey(path)
	s.cache.InvalidateFile(path)
	if s.summaries == nil {
		return nil
	}
	if err := s.summaries.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete summaries of %s: %w", path, err)
	}
	return nil
}
