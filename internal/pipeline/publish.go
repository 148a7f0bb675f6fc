package pipeline

import (
	"github.com/evalf/examples-gallery/internal/render"
	"github.com/evalf/examples-gallery/internal/report"
)

// Publish writes a page into the output directory of every example that
// produced one, and the overview at root listing the verified examples.
// An example whose page cannot be built, such as one hosted somewhere
// without a known browse URL, becomes a metadata failure.
func Publish(site *render.Site, root string, outcomes []*Outcome, results *report.Report) error {
	entries := make([]render.ListEntry, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OutputDir == "" {
			continue
		}
		page, err := render.NewExamplePage(o.Record, o.Images, results.Lookup(o.ID))
		if err != nil {
			if o.OK() {
				o.Failure = FailureMetadata
				o.Err = err
			}
			continue
		}
		if err := site.WriteExample(o.OutputDir, page); err != nil {
			return err
		}
		if o.OK() {
			entries = append(entries, render.NewListEntry(o.Record, o.Thumbnail, o.HasThumbnail))
		}
	}
	return site.WriteList(root, entries)
}
