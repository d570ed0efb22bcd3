package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"docctx/internal/extractor"
	"docctx/internal/pipeline"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// Syncer reindexes or removes a single file.
type Syncer interface {
	SyncFile(ctx context.Context, path string) (pipeline.FileResult, error)
}

// Watcher reindexes documents under a directory tree as they change on disk.
// Events are coalesced until the tree has been quiet for the debounce delay.
type Watcher struct {
	root      string
	syncer    Syncer
	extractor *extractor.Extractor
	debounce  time.Duration
	logger    *slog.Logger
	fsw       *fsnotify.Watcher
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New starts watching root and every non-hidden directory below it.
func New(root string, syncer Syncer, ext *extractor.Extractor, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		syncer:    syncer,
		extractor: ext,
		debounce:  DefaultDebounce,
		logger:    slog.Default(),
		fsw:       fsw,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.track(event, pending) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timer.C:
			w.flush(ctx, pending)
		}
	}
}

func (w *Watcher) track(event fsnotify.Event, pending map[string]struct{}) bool {
	if event.Has(fsnotify.Create) {
		// new directories are not covered by their parent's watch
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(info.Name(), ".") {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watch directory failed", "path", event.Name, "error", err)
				}
			}
			return false
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !w.extractor.Supports(event.Name) {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	clear(pending)
	slices.Sort(paths)

	for _, path := range paths {
		res, err := w.syncer.SyncFile(ctx, path)
		if err != nil {
			w.logger.Error("sync failed", "path", path, "error", err)
			continue
		}
		w.logger.Info("synced", "document", res.DocumentID, "chunks", res.Chunks, "removed", res.Removed, "skipped", res.Skipped)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
