package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/output"
	"github.com/evalf/examples-gallery/internal/watcher"
)

var (
	watchDebounce time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the website whenever its inputs change",
		Long: `Build the website, then rebuild it whenever an example descriptor, a
template or a static file changes. Press Ctrl+C to stop.

Changes are collected until the directories have been quiet for the
debounce interval, so saving several files triggers a single rebuild.
Combine with --reuse-output to rerun only the examples that changed.`,
		Example: `  # Rebuild on changes, reusing outputs of unchanged examples
  gallery watch --reuse-output

  # Wait longer before rebuilding
  gallery watch --debounce 2s`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a rebuild")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	dirs := []string{cfg.ExamplesDir, cfg.TemplatesDir, cfg.StaticDir}
	w, err := watcher.New(dirs, nil)
	if err != nil {
		return err
	}
	logger := newLogger()
	w.Logger = logger
	w.Debounce = watchDebounce

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %d director(ies); press Ctrl+C to stop\n", len(w.Dirs()))

	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		outcomes, err := buildSite(ctx, cfg, logger, progressWriter())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", time.Now().Format("15:04:05"), output.RenderSummary(outcomes))
		return nil
	})
}
