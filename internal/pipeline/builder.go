// Package pipeline turns example descriptors into verified outputs. For
// each example it checks out the pinned revision, runs the script in the
// sandbox, scans the execution log and selects the images to publish.
//
// Per-example failures (metadata, fetch, script) are reported as Outcomes
// and never stop the batch. Errors returned from Process, ProcessAll and
// Build are fatal: the container runtime is broken, the output directory
// cannot be written, or the context was cancelled.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evalf/examples-gallery/internal/logscan"
	"github.com/evalf/examples-gallery/internal/metadata"
	"github.com/evalf/examples-gallery/internal/repo"
	"github.com/evalf/examples-gallery/internal/sandbox"
	"github.com/evalf/examples-gallery/internal/selector"
)

// Official locates the official examples.
type Official struct {
	Repository  string
	Branch      string
	ExamplesDir string
	Authors     []string
}

// Builder processes examples. The zero value is not usable; Fetcher,
// Runner and Workspace are required.
type Builder struct {
	Fetcher   Fetcher
	Runner    Runner
	Workspace *sandbox.Workspace
	Matcher   logscan.Matcher

	// Image is recorded in completion markers and must match the image the
	// Runner uses.
	Image       string
	LibraryDir  string
	ReuseOutput bool
	Jobs        int

	ExamplesDir string
	Official    Official

	Logger *log.Logger
	// OnResolve is called by Build with the number of examples found.
	OnResolve func(total int)
	// OnOutcome is called once per processed example, never concurrently.
	OnOutcome func(*Outcome)

	mu sync.Mutex
}

func (b *Builder) logf(format string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, args...)
	}
}

func (b *Builder) matcher() logscan.Matcher {
	if b.Matcher == nil {
		return logscan.AnchorMatcher{}
	}
	return b.Matcher
}

// Resolve discovers and resolves every descriptor. Descriptors that fail to
// resolve are returned as metadata failures. When an official repository is
// configured its branch is checked out for the duration of the call; if it
// cannot be fetched, a single fetch failure with ID OfficialID stands in for
// the official examples and the user examples are resolved regardless.
func (b *Builder) Resolve(ctx context.Context) ([]metadata.Record, []*Outcome, error) {
	var (
		officialDir string
		prov        metadata.Provenance
		failures    []*Outcome
	)
	if b.Official.Repository != "" {
		b.logf("fetching official examples from %s at %s", b.Official.Repository, b.Official.Branch)
		tree, err := b.Fetcher.Checkout(ctx, b.Official.Repository, b.Official.Branch)
		var fetchErr *repo.FetchError
		switch {
		case err == nil:
			defer tree.Remove()
			officialDir = filepath.Join(tree.Dir(), filepath.FromSlash(b.Official.ExamplesDir))
			prov = metadata.Provenance{Authors: b.Official.Authors, Repository: b.Official.Repository}
		case errors.As(err, &fetchErr) && ctx.Err() == nil:
			b.logf("official examples skipped: %v", err)
			failures = append(failures, &Outcome{
				ID:      OfficialID,
				Source:  b.Official.Repository,
				Failure: FailureFetch,
				Err:     fmt.Errorf("failed to fetch official examples: %w", err),
			})
		default:
			return nil, nil, fmt.Errorf("failed to fetch official examples: %w", err)
		}
	}

	sources, err := metadata.Discover(b.ExamplesDir, officialDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover examples: %w", err)
	}

	var (
		records   []metadata.Record
		conflicts = metadata.Conflicts(sources)
	)
	for _, src := range sources {
		rec, err := src.Resolve(ctx, prov)
		if err == nil && conflicts[src.ID] != nil {
			err = conflicts[src.ID]
		}
		if err != nil {
			b.logf("%v", err)
			failures = append(failures, &Outcome{
				ID:      src.ID,
				Source:  src.Path,
				Failure: FailureMetadata,
				Err:     err,
			})
			continue
		}
		records = append(records, rec)
	}
	return records, failures, nil
}

// Build resolves and processes every example and returns the outcomes
// sorted by ID. On a fatal error the outcomes gathered so far are returned
// along with it.
func (b *Builder) Build(ctx context.Context) ([]*Outcome, error) {
	records, failures, err := b.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if b.OnResolve != nil {
		b.OnResolve(len(records) + len(failures))
	}
	for _, o := range failures {
		b.report(o)
	}

	processed, err := b.ProcessAll(ctx, records)
	outcomes := append(failures, processed...)
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].ID < outcomes[j].ID
	})
	return outcomes, err
}

// ProcessAll processes records with at most Jobs examples in flight.
func (b *Builder) ProcessAll(ctx context.Context, records []metadata.Record) ([]*Outcome, error) {
	jobs := b.Jobs
	if jobs < 1 {
		jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	results := make([]*Outcome, len(records))
	for i, rec := range records {
		g.Go(func() error {
			o, err := b.Process(gctx, rec)
			if o != nil && err != nil {
				o.Interrupted = true
				o.Err = err
			}
			results[i] = o
			if o != nil && err == nil {
				b.report(o)
			}
			return err
		})
	}
	err := g.Wait()

	outcomes := make([]*Outcome, 0, len(results))
	for _, o := range results {
		if o != nil {
			outcomes = append(outcomes, o)
		}
	}
	return outcomes, err
}

func (b *Builder) report(o *Outcome) {
	if b.OnOutcome == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OnOutcome(o)
}

// Process runs one example. The returned Outcome is non-nil unless ctx was
// already done; a non-nil error is fatal for the batch.
func (b *Builder) Process(ctx context.Context, rec metadata.Record) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &Outcome{ID: rec.ID, Source: rec.Source, Record: rec}

	if b.ReuseOutput {
		commit, err := b.Fetcher.Resolve(ctx, rec.Repository, rec.Revision)
		if err != nil {
			return b.fetchFailed(ctx, out, err)
		}
		if b.Workspace.Reusable(rec.ID, commit, b.Image) {
			b.logf("%s: reusing output of %s", rec.ID, commit)
			out.Record = rec.WithRevision(commit)
			out.Reused = true
			out.OutputDir = b.Workspace.Dir(rec.ID)
			return b.collect(out)
		}
	}

	b.logf("%s: checking out %s at %s", rec.ID, rec.Repository, rec.Revision)
	tree, err := b.Fetcher.Checkout(ctx, rec.Repository, rec.Revision)
	if err != nil {
		return b.fetchFailed(ctx, out, err)
	}
	defer func() {
		if err := tree.Remove(); err != nil {
			b.logf("%s: %v", rec.ID, err)
		}
	}()
	out.Record = rec.WithRevision(tree.Commit())

	if _, err := tree.HideLibrary(b.LibraryDir); err != nil {
		return out, fmt.Errorf("%s: %w", rec.ID, err)
	}

	staging, err := b.Workspace.Begin(rec.ID)
	if err != nil {
		return out, err
	}
	defer staging.Discard()

	b.logf("%s: running %s", rec.ID, rec.Script)
	res, err := b.Runner.Run(ctx, sandbox.Job{
		ID:        rec.ID,
		TreeDir:   tree.Dir(),
		Script:    rec.Script,
		OutputDir: staging.Dir,
	})
	out.Result = res
	if err != nil {
		return out, fmt.Errorf("%s: %w", rec.ID, err)
	}

	final, err := staging.Commit(res, sandbox.Marker{
		Commit: tree.Commit(),
		Image:  b.Image,
		Script: rec.Script,
	})
	if err != nil {
		return out, err
	}
	out.OutputDir = final

	if res.State != sandbox.Succeeded {
		out.Failure = FailureScript
		if res.TimedOut {
			out.Err = fmt.Errorf("script %s timed out after %s", rec.Script, res.Duration().Round(time.Second))
		} else {
			out.Err = fmt.Errorf("script %s exited with status %d", rec.Script, res.ExitCode)
		}
		b.logf("%s: %v", rec.ID, out.Err)
		return out, nil
	}
	return b.collect(out)
}

func (b *Builder) fetchFailed(ctx context.Context, out *Outcome, err error) (*Outcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	out.Failure = FailureFetch
	out.Err = err
	b.logf("%s: could not verify: %v", out.ID, err)
	return out, nil
}

// collect scans the execution log in out.OutputDir and selects images.
func (b *Builder) collect(out *Outcome) (*Outcome, error) {
	rec := out.Record
	seqs, err := logscan.Collect(filepath.Join(out.OutputDir, logscan.LogFileName), b.matcher(), rec.ImageNames)
	if err != nil {
		return out, fmt.Errorf("%s: failed to find images: %w", rec.ID, err)
	}
	out.Images = seqs.Select(rec.ImageIndex)
	out.Thumbnail, out.HasThumbnail = selector.Thumbnail(out.Images, rec.ThumbnailIndex)
	return out, nil
}
