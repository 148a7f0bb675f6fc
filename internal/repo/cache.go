// Package repo materializes pinned revisions of remote git repositories.
//
// A Cache keeps one bare repository per remote URL and hands out disposable
// worktrees, so examples sharing a repository and revision never clone it
// twice. Work on one bare repository (fetch, ref resolution, worktree
// creation and removal) is serialized; different repositories proceed
// independently.
//
// Example usage:
//
//	cache, err := repo.NewCache(dir)
//	if err != nil {
//		return err
//	}
//	defer cache.Close()
//
//	wt, err := cache.Checkout(ctx, "https://github.com/evalf/nutils.git", "release/7")
//	if err != nil {
//		return err // *repo.FetchError
//	}
//	defer wt.Remove()
package repo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// commandContext builds git invocations. Tests replace it.
var commandContext = exec.CommandContext

// FetchError reports that a revision could not be materialized. Callers
// record it as "could not verify", never as a failing example.
type FetchError struct {
	Repository string
	Ref        string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s at %s: %v", e.Repository, e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Cache owns the bare repositories and the worktrees checked out of them.
// Create it at batch start and Close it at batch end.
type Cache struct {
	dir string

	mu        sync.Mutex
	repos     map[string]*bareRepo
	worktrees map[*Worktree]struct{}
}

type bareRepo struct {
	mu      sync.Mutex
	url     string
	dir     string
	ready   bool
	commits map[string]string // ref -> commit, for the cache lifetime
}

// NewCache creates a cache rooted at dir. Bare repositories persist in dir
// between runs; worktrees are placed under dir/checkouts.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "checkouts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository cache: %w", err)
	}
	return &Cache{
		dir:       dir,
		repos:     make(map[string]*bareRepo),
		worktrees: make(map[*Worktree]struct{}),
	}, nil
}

func (c *Cache) repo(url string) *bareRepo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.repos[url]; ok {
		return r
	}
	sum := sha1.Sum([]byte(url))
	r := &bareRepo{
		url:     url,
		dir:     filepath.Join(c.dir, hex.EncodeToString(sum[:])+".git"),
		commits: make(map[string]string),
	}
	c.repos[url] = r
	return r
}

// Resolve turns ref (a branch, tag or commit) into a commit hash. Each ref
// is fetched at most once per Cache.
func (c *Cache) Resolve(ctx context.Context, url, ref string) (string, error) {
	r := c.repo(url)
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.resolveLocked(ctx, ref)
	if err != nil {
		return "", &FetchError{Repository: url, Ref: ref, Err: err}
	}
	return commit, nil
}

// Checkout materializes ref of url in a fresh worktree.
func (c *Cache) Checkout(ctx context.Context, url, ref string) (*Worktree, error) {
	r := c.repo(url)
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.resolveLocked(ctx, ref)
	if err != nil {
		return nil, &FetchError{Repository: url, Ref: ref, Err: err}
	}

	parent, err := os.MkdirTemp(filepath.Join(c.dir, "checkouts"), "wt-")
	if err != nil {
		return nil, &FetchError{Repository: url, Ref: ref, Err: fmt.Errorf("failed to create checkout directory: %w", err)}
	}
	tree := filepath.Join(parent, "tree")

	if _, err := r.git(ctx, "-c", "advice.detachedHead=false", "worktree", "add", "--detach", "--force", tree, commit); err != nil {
		os.RemoveAll(parent)
		return nil, &FetchError{Repository: url, Ref: ref, Err: err}
	}

	wt := &Worktree{Dir: tree, Commit: commit, parent: parent, repo: r, cache: c}
	c.mu.Lock()
	c.worktrees[wt] = struct{}{}
	c.mu.Unlock()
	return wt, nil
}

// Close removes every worktree that is still checked out. Bare repositories
// stay on disk for the next run.
func (c *Cache) Close() error {
	c.mu.Lock()
	pending := make([]*Worktree, 0, len(c.worktrees))
	for wt := range c.worktrees {
		pending = append(pending, wt)
	}
	c.mu.Unlock()

	var firstErr error
	for _, wt := range pending {
		if err := wt.Remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *bareRepo) resolveLocked(ctx context.Context, ref string) (string, error) {
	if commit, ok := r.commits[ref]; ok {
		return commit, nil
	}
	if err := r.initLocked(ctx); err != nil {
		return "", err
	}

	if _, err := r.git(ctx, "fetch", "--quiet", "--no-tags", "--depth", "1", r.url, ref); err != nil {
		return "", err
	}
	out, err := r.git(ctx, "rev-parse", "--verify", "FETCH_HEAD^{commit}")
	if err != nil {
		return "", err
	}
	commit := strings.TrimSpace(out)

	// Keep the fetched commit referenced so it survives gc between runs.
	if _, err := r.git(ctx, "update-ref", "refs/gallery/"+commit, commit); err != nil {
		return "", err
	}

	r.commits[ref] = commit
	r.commits[commit] = commit
	return commit, nil
}

func (r *bareRepo) initLocked(ctx context.Context) error {
	if r.ready {
		return nil
	}
	if _, err := os.Stat(filepath.Join(r.dir, "HEAD")); err != nil {
		cmd := commandContext(ctx, "git", "init", "--bare", "--quiet", r.dir)
		cmd.Stdin = nil
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("git init failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
		}
	}
	r.ready = true
	return nil
}

// git runs a command against the bare repository and returns its stdout.
func (r *bareRepo) git(ctx context.Context, args ...string) (string, error) {
	cmd := commandContext(ctx, "git", append([]string{"--git-dir", r.dir}, args...)...)
	cmd.Stdin = nil
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s failed: %w (stderr: %s)", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return string(output), nil
}
