package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Worktree is a disposable checkout of one commit.
type Worktree struct {
	Dir    string
	Commit string

	parent  string
	repo    *bareRepo
	cache   *Cache
	once    sync.Once
	removed error
}

// HideLibrary renames a top-level directory called name to name.tmp, so a
// script run from the tree imports the library installed in the container
// rather than the sources bundled with the checkout. It reports whether a
// directory was renamed.
func (w *Worktree) HideLibrary(name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	src := filepath.Join(w.Dir, name)
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return false, nil
	}
	if err := os.Rename(src, src+".tmp"); err != nil {
		return false, fmt.Errorf("failed to hide %s: %w", name, err)
	}
	return true, nil
}

// Remove deletes the worktree. It is safe to call more than once.
func (w *Worktree) Remove() error {
	w.once.Do(func() {
		w.repo.mu.Lock()
		defer w.repo.mu.Unlock()

		ctx := context.Background()
		// Best effort: the directory is removed below either way.
		w.repo.git(ctx, "worktree", "remove", "--force", w.Dir) //nolint:errcheck

		if err := os.RemoveAll(w.parent); err != nil && !os.IsNotExist(err) {
			w.removed = fmt.Errorf("failed to remove worktree %s: %w", w.Dir, err)
		}
		w.repo.git(ctx, "worktree", "prune") //nolint:errcheck

		w.cache.mu.Lock()
		delete(w.cache.worktrees, w)
		w.cache.mu.Unlock()
	})
	return w.removed
}
