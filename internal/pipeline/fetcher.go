package pipeline

import (
	"context"

	"github.com/evalf/examples-gallery/internal/repo"
	"github.com/evalf/examples-gallery/internal/sandbox"
)

// Tree is a checked-out revision.
type Tree interface {
	Dir() string
	Commit() string
	HideLibrary(name string) (bool, error)
	Remove() error
}

// Fetcher materializes revisions. Errors are treated as fetch failures.
type Fetcher interface {
	Resolve(ctx context.Context, url, ref string) (string, error)
	Checkout(ctx context.Context, url, ref string) (Tree, error)
}

// Runner executes a script. It is satisfied by *sandbox.Runner.
type Runner interface {
	Run(ctx context.Context, job sandbox.Job) (*sandbox.Result, error)
}

// CacheFetcher adapts a repository cache to Fetcher.
type CacheFetcher struct {
	Cache *repo.Cache
}

func (f CacheFetcher) Resolve(ctx context.Context, url, ref string) (string, error) {
	return f.Cache.Resolve(ctx, url, ref)
}

func (f CacheFetcher) Checkout(ctx context.Context, url, ref string) (Tree, error) {
	wt, err := f.Cache.Checkout(ctx, url, ref)
	if err != nil {
		return nil, err
	}
	return worktree{wt}, nil
}

type worktree struct {
	wt *repo.Worktree
}

func (w worktree) Dir() string                           { return w.wt.Dir }
func (w worktree) Commit() string                        { return w.wt.Commit }
func (w worktree) HideLibrary(name string) (bool, error) { return w.wt.HideLibrary(name) }
func (w worktree) Remove() error                         { return w.wt.Remove() }
