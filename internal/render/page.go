package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/evalf/examples-gallery/internal/metadata"
	"github.com/evalf/examples-gallery/internal/report"
)

// ErrUnsupportedHost is returned by ScriptURL for repositories on hosts
// without a known browse URL scheme.
var ErrUnsupportedHost = errors.New("unsupported repository host")

// ExamplePage is the context of the per-example template.
type ExamplePage struct {
	ID          string
	Name        string
	Authors     string
	Description template.HTML
	Images      []string
	Repository  string
	Revision    string
	Script      string
	ScriptURL   string
	Tags        []string
	Results     []Badge
	FetchFailed bool
}

// Badge is the validation verdict for one container image.
type Badge struct {
	Image    string
	Revision string
	Passed   bool
}

// ListEntry is one item of the examples overview.
type ListEntry struct {
	ID        string
	Name      string
	Thumbnail string // "<id>/<file>", empty when there is none
	Tags      []string
	Href      string
}

// NewExamplePage builds the page context of a resolved example. rec must
// carry the commit the images were produced from.
func NewExamplePage(rec metadata.Record, images []string, results *report.Entry) (*ExamplePage, error) {
	url, err := ScriptURL(rec.Repository, rec.Revision, rec.Script)
	if err != nil {
		return nil, err
	}
	desc, err := Markdown(rec.Description)
	if err != nil {
		return nil, err
	}

	page := &ExamplePage{
		ID:          rec.ID,
		Name:        rec.Name,
		Authors:     JoinAuthors(rec.Authors),
		Description: desc,
		Images:      images,
		Repository:  rec.Repository,
		Revision:    rec.Revision,
		Script:      rec.Script,
		ScriptURL:   url,
		Tags:        rec.Tags,
	}
	if results != nil {
		page.FetchFailed = results.FetchFailed
		for _, image := range results.Images() {
			rev := results.Revisions[image]
			page.Results = append(page.Results, Badge{Image: image, Revision: rev.Revision, Passed: rev.Passed})
		}
	}
	return page, nil
}

// NewListEntry builds the overview item of example id.
func NewListEntry(rec metadata.Record, thumbnail string, ok bool) ListEntry {
	entry := ListEntry{
		ID:   rec.ID,
		Name: rec.Name,
		Tags: rec.Tags,
		Href: rec.ID + "/",
	}
	if ok {
		entry.Thumbnail = rec.ID + "/" + thumbnail
	}
	return entry
}

// JoinAuthors joins names as prose: "A", "A and B", "A, B and C".
func JoinAuthors(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

var md = goldmark.New()

// Markdown converts CommonMark to HTML. Raw HTML in the input is omitted.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// ScriptURL returns the address where script can be browsed at revision.
// The repository must be an https clone URL ending in ".git".
func ScriptURL(repository, revision, script string) (string, error) {
	prefix, ok := strings.CutSuffix(repository, ".git")
	if !ok {
		return "", fmt.Errorf("repository %s does not end with .git", repository)
	}
	switch {
	case strings.HasPrefix(prefix, "https://github.com/"):
		return fmt.Sprintf("%s/blob/%s/%s", prefix, revision, script), nil
	case strings.HasPrefix(prefix, "https://gitlab.com/"):
		return fmt.Sprintf("%s/-/blob/%s/%s", prefix, revision, script), nil
	case strings.HasPrefix(prefix, "https://codeberg.org/"):
		return fmt.Sprintf("%s/src/commit/%s/%s", prefix, revision, script), nil
	}
	return "", fmt.Errorf("cannot form script url for %s: %w", repository, ErrUnsupportedHost)
}
