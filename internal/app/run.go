package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/output"
	"github.com/evalf/examples-gallery/internal/pipeline"
	"github.com/evalf/examples-gallery/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run <example-id>",
	Short: "Run a single example",
	Long: `Run one example and write its page into the output directory.

The example is identified by its ID: "user-" followed by the descriptor's
file name without extension, or "official-" followed by the script name.
The overview page is not touched.`,
	Example: `  gallery run user-cylinder-flow
  gallery run official-laplace`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	site, err := render.NewSite(cfg.TemplatesDir)
	if err != nil {
		return err
	}
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
	for _, o := range failures {
		if o.ID == id || (o.ID == pipeline.OfficialID && strings.HasPrefix(id, pipeline.OfficialID+"-")) {
			return o.Err
		}
	}

	found := false
	for _, rec := range records {
		if rec.ID != id {
			continue
		}
		found = true

		var spinner *output.Spinner
		if w := progressWriter(); w != nil {
			spinner = output.NewSpinner("Running " + id).WithTimeout(cfg.Container.Timeout)
			spinner.SetWriter(w)
			spinner.Start()
		}
		o, err := b.Process(ctx, rec)
		if spinner != nil {
			spinner.Stop()
		}
		if err != nil {
			return err
		}

		if o.OutputDir != "" {
			page, err := render.NewExamplePage(o.Record, o.Images, nil)
			if err != nil {
				return err
			}
			if err := site.WriteExample(o.OutputDir, page); err != nil {
				return err
			}
		}
		printOutcome(cmd, o)
		if !o.OK() {
			return fmt.Errorf("%s: %s", id, o.Status())
		}
	}
	if !found {
		return fmt.Errorf("no example with ID %q; run 'gallery list' to see all examples", id)
	}
	return nil
}

func printOutcome(cmd *cobra.Command, o *pipeline.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderOutcomeTable([]*pipeline.Outcome{o}))
	if !o.OK() {
		return
	}
	fmt.Fprintf(out, "\nRevision:  %s\n", o.Record.Revision)
	fmt.Fprintf(out, "Output:    %s\n", o.OutputDir)
	if len(o.Images) == 0 {
		fmt.Fprintln(out, "Images:    none")
	}
	for i, img := range o.Images {
		label := "Images:"
		if i > 0 {
			label = ""
		}
		fmt.Fprintf(out, "%-10s %s\n", label, img)
	}
	if o.HasThumbnail {
		fmt.Fprintf(out, "Thumbnail: %s\n", o.Thumbnail)
	}
}
