// Package watch supplements the store with a filesystem watcher so
// external edits (a `zig fmt` run, a VCS checkout, another editor) aren't
// served stale from the handle cache. Built around a familiar
// fsnotify-based debounced rebuilder: one timer per path, reset on every
// event, firing the store update only once activity settles.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/logging"
	"github.com/standardbeagle/zlsd/internal/uriutil"
)

const logComponent = "watch"

// Watcher debounces fsnotify events per path and applies settled changes
// to a docstore.Store: open documents are left alone (the editor is the
// source of truth for those), closed ones are dropped from the cache so
// the next access reloads from disk.
type Watcher struct {
	fsw      *fsnotify.Watcher
	store    *docstore.Store
	debounce time.Duration
	exclude  []string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New constructs a Watcher over store, configured from cfg.Watch. Returns
// nil, nil if watching is disabled.
func New(cfg *config.Config, store *docstore.Store) (*Watcher, error) {
	if !cfg.Watch.Enabled {
		return nil, nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &Watcher{
		fsw:      fsw,
		store:    store,
		debounce: debounce,
		exclude:  cfg.Project.Exclude,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// AddRoot recursively registers root and its subdirectories with the
// underlying fsnotify watcher, skipping configured exclude globs. Exclude
// patterns are doublestar globs (e.g. "**/.git/**") matched against the
// directory's path relative to root, with forward slashes regardless of
// platform.
func (w *Watcher) AddRoot(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if matchesAny(w.exclude, filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if werr := w.fsw.Add(path); werr != nil {
			logging.Debugf(logComponent, "watch %s: %v", path, werr)
		}
		return nil
	})
}

func matchesAny(globs []string, relPath string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, relPath); ok {
			return true
		}
	}
	return false
}

// Run drains fsnotify events until ctx is canceled, debouncing per path
// and applying settled changes to the store.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warnf(logComponent, "fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.settle(path)
	})
}

func (w *Watcher) settle(path string) {
	uri, err := uriutil.FromPath(path)
	if err != nil {
		return
	}
	if h, ok := w.store.GetHandle(uri); ok && h.IsOpen() {
		return
	}
	if w.store.RefreshDocumentFromFileSystem(uri) {
		logging.Debugf(logComponent, "dropped stale cache for %s", uri)
	}
}
