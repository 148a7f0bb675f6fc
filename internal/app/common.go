package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/config"
	"github.com/evalf/examples-gallery/internal/pipeline"
	"github.com/evalf/examples-gallery/internal/repo"
	"github.com/evalf/examples-gallery/internal/sandbox"
	"github.com/evalf/examples-gallery/internal/store"
)

// signalContext returns the command's context, cancelled on SIGINT or
// SIGTERM so running containers are stopped and checkouts removed.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// newBuilder wires a pipeline for image, writing outputs under root.
func newBuilder(cfg *config.Config, cache *repo.Cache, root, image string, logger *log.Logger) *pipeline.Builder {
	return &pipeline.Builder{
		Fetcher: pipeline.CacheFetcher{Cache: cache},
		Runner: &sandbox.Runner{
			Runtime: cfg.Container.Runtime,
			Image:   image,
			Timeout: cfg.Container.Timeout,
		},
		Workspace:   &sandbox.Workspace{Root: root},
		Image:       image,
		LibraryDir:  cfg.LibraryDir,
		ReuseOutput: cfg.ReuseOutput,
		Jobs:        cfg.Jobs,
		ExamplesDir: cfg.ExamplesDir,
		Official: pipeline.Official{
			Repository:  cfg.Official.Repository,
			Branch:      cfg.Official.Branch,
			ExamplesDir: cfg.Official.ExamplesDir,
			Authors:     cfg.Official.Authors,
		},
		Logger: logger,
	}
}

// openCache opens the shared repository cache.
func openCache(cfg *config.Config) (*repo.Cache, error) {
	cache, err := repo.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository cache: %w", err)
	}
	return cache, nil
}

// openHistory opens the run history, creating it when needed.
func openHistory(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return st, nil
}

// validateDir is where validation runs for image keep their outputs.
func validateDir(cfg *config.Config, image string) string {
	name := strings.NewReplacer("/", "_", ":", "_", "@", "_").Replace(image)
	return filepath.Join(filepath.Dir(filepath.Clean(cfg.OutputDir)), "validate", name)
}

// failedError summarizes examples that did not verify.
func failedError(outcomes []*pipeline.Outcome) error {
	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d examples did not verify", failed, len(outcomes))
}
