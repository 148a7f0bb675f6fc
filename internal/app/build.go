package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/config"
	"github.com/evalf/examples-gallery/internal/output"
	"github.com/evalf/examples-gallery/internal/pipeline"
	"github.com/evalf/examples-gallery/internal/render"
	"github.com/evalf/examples-gallery/internal/report"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run every example and build the website",
	Long: `Build the complete website.

For every example descriptor:
  • the pinned revision is checked out from the repository cache
  • the script runs in the container with networking disabled
  • the execution log is scanned for generated images
  • an example page is written next to the log

Afterwards the overview page is written and static files are copied.
Examples that could not be verified are listed at the end and make the
command exit with a non-zero status; the rest of the site is still built.

Results are recorded in the run history, which 'gallery status' reads.
The version badges on example pages come from the run history, or from a
status report exported by 'gallery validate --export' when --status is
given.`,
	Example: `  # Build with four examples in flight
  gallery build --jobs 4

  # Skip examples whose output is complete for the same commit and image
  gallery build --reuse-output

  # Show badges from a report produced by a separate validation job
  gallery build --status target/status.json`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("status", "", "status report (from 'gallery validate --export') to show as badges")
	bindFlag("status_file", buildCmd.Flags().Lookup("status"))

	RootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	outcomes, err := buildSite(ctx, cfg, newLogger(), progressWriter())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed []*pipeline.Outcome
	for _, o := range outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderOutcomeTable(failed))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.RenderSummary(outcomes))
	fmt.Fprintf(out, "Website written to %s\n", cfg.OutputDir)

	return failedError(outcomes)
}

// buildSite runs the full build. An error means the site could not be
// built at all; per-example failures are only reported in the outcomes.
func buildSite(ctx context.Context, cfg *config.Config, logger *log.Logger, progress io.Writer) ([]*pipeline.Outcome, error) {
	site, err := render.NewSite(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}
	results, err := readStatusFile(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	cache, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	history, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	defer history.Close()

	b := newBuilder(cfg, cache, cfg.OutputDir, cfg.Container.Image, logger)
	var bar *output.ProgressBar
	if progress != nil {
		b.OnResolve = func(total int) {
			bar = output.NewProgress(total)
			bar.SetWriter(progress)
		}
		b.OnOutcome = func(o *pipeline.Outcome) {
			bar.Step(o.ID + ": " + o.Status())
		}
	}

	outcomes, err := b.Build(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		// Record what ran, including a run the sandbox failed on.
		if perr := pipeline.Persist(history, cfg.Container.Image, outcomes); perr != nil {
			logger.Printf("%v", perr)
		}
		return outcomes, err
	}

	if err := pipeline.Persist(history, cfg.Container.Image, outcomes); err != nil {
		return outcomes, err
	}
	if results == nil {
		if results, err = report.FromStore(history); err != nil {
			return outcomes, err
		}
	}

	if err := pipeline.Publish(site, cfg.OutputDir, outcomes, results); err != nil {
		return outcomes, err
	}
	n, err := render.CopyStatic(cfg.StaticDir, cfg.OutputDir)
	if err != nil {
		return outcomes, err
	}
	logger.Printf("copied %d static file(s) from %s", n, cfg.StaticDir)

	return outcomes, nil
}

// readStatusFile loads the badge source given with --status, or returns nil
// when badges come from the run history.
func readStatusFile(cfg *config.Config) (*report.Report, error) {
	if cfg.StatusFile == "" {
		return nil, nil
	}
	return report.Read(cfg.StatusFile)
}
