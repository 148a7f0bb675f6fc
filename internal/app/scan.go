package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evalf/examples-gallery/internal/logscan"
	"github.com/evalf/examples-gallery/internal/output"
	"github.com/evalf/examples-gallery/internal/selector"
)

var (
	scanNames     []string
	scanIndex     int
	scanThumbnail int
)

var scanLogCmd = &cobra.Command{
	Use:   "scan-log <log.html>",
	Short: "Show the images found in an execution log",
	Long: `Scan an existing execution log and show every image reference found in
it, and which images would be published.

An image reference is a line with an anchor of the form

  <a href="<40 hex digits>.png" download="<name>">...</a>

Only the first anchor on a line counts. By default every name is tracked
in the order it first appears and its last file is selected; --names,
--index and --thumbnail behave like the images, image_index and
thumbnail_index descriptor keys.`,
	Example: `  gallery scan-log target/website/user-cylinder-flow/log.html
  gallery scan-log log.html --names solution,mesh --index 0`,
	Args: cobra.ExactArgs(1),
	RunE: runScanLog,
}

func init() {
	scanLogCmd.Flags().StringSliceVar(&scanNames, "names", nil, "track only these image names, in this order")
	scanLogCmd.Flags().IntVar(&scanIndex, "index", -1, "select this file of every name instead of the last")
	scanLogCmd.Flags().IntVar(&scanThumbnail, "thumbnail", -1, "use this selected image as thumbnail instead of the last")

	RootCmd.AddCommand(scanLogCmd)
}

func runScanLog(cmd *cobra.Command, args []string) error {
	path := args[0]

	sc, err := logscan.Open(path, logscan.AnchorMatcher{})
	if err != nil {
		return err
	}
	defer sc.Close()

	seqs := selector.New(scanNames)
	var events []logscan.Event
	for sc.Next() {
		ev := sc.Event()
		events = append(events, ev)
		seqs.Add(ev.Name, ev.Filename)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	selected := seqs.Select(optionalIndex(scanIndex))
	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderEventTable(events, selected))

	fmt.Fprintf(out, "\nSelected %d of %d image(s) (%d candidate(s) in %d sequence(s))\n",
		len(selected), len(events), seqs.Len(), len(seqs.Names()))
	if thumb, ok := selector.Thumbnail(selected, optionalIndex(scanThumbnail)); ok {
		fmt.Fprintf(out, "Thumbnail: %s\n", thumb)
	} else {
		fmt.Fprintln(out, "Thumbnail: none")
	}
	return nil
}

// optionalIndex maps the flag sentinel -1 to "not set".
func optionalIndex(i int) *int {
	if i < 0 {
		return nil
	}
	return &i
}
