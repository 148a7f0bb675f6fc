package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/output"
	"github.com/evalf/examples-gallery/internal/pipeline"
	"github.com/evalf/examples-gallery/internal/report"
)

var (
	validateImages []string
	validateExport string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run every example against one or more container images",
	Long: `Run every example with each given container image and record the
results in the run history.

This is how an example is checked against several library versions: each
image holds one version. Outputs are kept per image next to the website,
under validate/<image>, and are not published.

With --export the latest result per example and image is written as a
JSON status report, which the website build shows as version badges.

The command exits non-zero when any example did not verify with any image.`,
	Example: `  # Validate with the configured image
  gallery validate

  # Validate against two versions and export the result
  gallery validate --image ghcr.io/evalf/nutils:7 --image ghcr.io/evalf/nutils:8 \
    --export target/status.json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateImages, "image", nil, "container image to validate with (repeatable, default: container.image)")
	validateCmd.Flags().StringVar(&validateExport, "export", "", "write the status report to this JSON file")

	RootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	images := validateImages
	if len(images) == 0 {
		images = []string{cfg.Container.Image}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger := newLogger()
	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	// Descriptors are resolved once; every image runs the same commits.
	records, failures, err := newBuilder(cfg, cache, "", images[0], logger).Resolve(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var all []*pipeline.Outcome
	for _, image := range images {
		logger.Printf("validating %d example(s) with %s", len(records), image)
		b := newBuilder(cfg, cache, validateDir(cfg, image), image, logger)
		// Reused outputs record no run.
		b.ReuseOutput = false

		outcomes, err := b.ProcessAll(ctx, records)
		if err != nil {
			if perr := pipeline.Persist(history, image, outcomes); perr != nil {
				logger.Printf("%v", perr)
			}
			return err
		}
		if err := pipeline.Persist(history, image, outcomes); err != nil {
			return err
		}

		fmt.Fprintf(out, "\n%s\n", image)
		fmt.Fprint(out, output.RenderOutcomeTable(outcomes))
		fmt.Fprintln(out, output.RenderSummary(outcomes))
		all = append(all, outcomes...)
	}

	if len(failures) > 0 {
		fmt.Fprintf(out, "\n%d descriptor(s) could not be resolved:\n", len(failures))
		for _, o := range failures {
			fmt.Fprintf(out, "  %s: %v\n", o.ID, o.Err)
		}
		all = append(all, failures...)
	}

	if validateExport != "" {
		results, err := report.FromStore(history)
		if err != nil {
			return err
		}
		if err := report.Write(validateExport, results); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nStatus report written to %s\n", validateExport)
	}

	return failedError(all)
}
