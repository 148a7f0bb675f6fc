package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Resolve example descriptors without running them",
	Long: `Resolve every example descriptor and print the resulting records.

The official examples are fetched to read their comment headers; user
examples are only parsed. Nothing is executed. Descriptors that fail to
resolve are listed below the table and make the command exit non-zero.`,
	Example: `  gallery list`,
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	b := newBuilder(cfg, cache, cfg.OutputDir, cfg.Container.Image, newLogger())
	records, failures, err := b.Resolve(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderRecordTable(records))
	if len(failures) == 0 {
		return nil
	}

	fmt.Fprintf(out, "\n%d descriptor(s) could not be resolved:\n", len(failures))
	for _, o := range failures {
		fmt.Fprintf(out, "  %s: %v\n", o.ID, o.Err)
	}
	return fmt.Errorf("%d invalid descriptor(s)", len(failures))
}
