package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must be quiet before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc rebuilds the site. changed lists the paths that triggered it,
// sorted; it is nil for the initial build.
type RebuildFunc func(ctx context.Context, changed []string) error

// Watcher turns file system events in a set of directories into rebuilds.
type Watcher struct {
	fsw    *fsnotify.Watcher
	filter *Filter
	dirs   []string

	Debounce time.Duration
	Logger   *log.Logger
}

// New watches dirs (non-recursively) for changes to files matching
// patterns. Directories that do not exist are skipped.
func New(dirs, patterns []string) (*Watcher, error) {
	filter, err := NewFilter(patterns)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		filter:   filter,
		Debounce: DefaultDebounce,
		Logger:   log.New(io.Discard, "", 0),
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			continue
		}
		if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
		}
		w.dirs = append(w.dirs, abs)
	}
	return w, nil
}

// Dirs returns the absolute paths of the watched directories.
func (w *Watcher) Dirs() []string {
	return w.dirs
}

// Close releases the underlying watcher. Run closes it on return.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls rebuild once immediately and then after every burst of
// matching changes, until ctx is cancelled. A failing rebuild is logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	defer w.fsw.Close()

	w.build(ctx, rebuild, nil)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) || !w.filter.Match(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("watcher error: %v", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			clear(pending)
			w.build(ctx, rebuild, changed)
		}
	}
}

func (w *Watcher) build(ctx context.Context, rebuild RebuildFunc, changed []string) {
	if len(changed) > 0 {
		w.Logger.Printf("rebuilding after changes to %d file(s)", len(changed))
	}
	if err := rebuild(ctx, changed); err != nil && ctx.Err() == nil {
		w.Logger.Printf("rebuild failed: %v", err)
	}
}

func relevant(ev fsnotify.Event) bool {
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
