package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/output"
	"github.com/evalf/examples-gallery/internal/report"
	"github.com/evalf/examples-gallery/internal/store"
)

var statusExport string

var statusCmd = &cobra.Command{
	Use:   "status [example-id]",
	Short: "Show recorded validation results",
	Long: `Show the latest recorded result of every example per container image.

With an example ID, the full run history of that example is shown
instead, newest first.

Results are recorded by 'gallery build' (for the configured image) and
'gallery validate' (for every image given).`,
	Example: `  # Latest result per example and image
  gallery status

  # History of one example
  gallery status user-cylinder-flow

  # Export the latest results as a JSON status report
  gallery status --export target/status.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusExport, "export", "", "write the status report to this JSON file")

	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(cfg.DB); os.IsNotExist(err) {
		fmt.Fprintf(out, "No run history at %s.\n", cfg.DB)
		fmt.Fprintln(out, "Run 'gallery build' or 'gallery validate' to record results.")
		return nil
	}

	// Opened without creating the schema so an empty file is reported as such.
	st, err := store.New(cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		ex, err := st.GetExample(args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no runs recorded for %s", args[0])
		}
		if err != nil {
			return err
		}
		runs, err := st.ListRuns(ex.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n", ex.Name, ex.ID)
		fmt.Fprintf(out, "Repository: %s\n", ex.Repository)
		fmt.Fprintf(out, "Revision:   %s\n", ex.Revision)
		fmt.Fprintf(out, "Script:     %s\n\n", ex.Script)
		fmt.Fprint(out, output.RenderRunHistory(runs))
		return nil
	}

	latest, err := st.LatestResults()
	if errors.Is(err, store.ErrNotInitialized) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	fmt.Fprint(out, output.RenderResultsTable(latest))

	examples, err := st.ListExamples()
	if err != nil {
		return err
	}
	total, err := st.GetRunCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d example(s), %d run(s) recorded in %s\n", len(examples), total, cfg.DB)

	if statusExport != "" {
		if err := report.Write(statusExport, report.Build(latest)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Status report written to %s\n", statusExport)
	}
	return nil
}
