package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/evalf/examples-gallery/internal/metadata"
	"github.com/evalf/examples-gallery/internal/report"
)

func TestJoinAuthors(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"Evalf"}, "Evalf"},
		{[]string{"Evalf", "other Nutils contributors"}, "Evalf and other Nutils contributors"},
		{[]string{"A", "B", "C"}, "A, B and C"},
	}
	for _, tt := range tests {
		if got := JoinAuthors(tt.names); got != tt.want {
			t.Errorf("JoinAuthors(%q) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestScriptURL(t *testing.T) {
	const rev = "0123456789abcdef0123456789abcdef01234567"
	tests := []struct {
		name       string
		repository string
		want       string
		wantErr    bool
	}{
		{
			name:       "github",
			repository: "https://github.com/evalf/nutils.git",
			want:       "https://github.com/evalf/nutils/blob/" + rev + "/examples/laplace.py",
		},
		{
			name:       "gitlab",
			repository: "https://gitlab.com/group/project.git",
			want:       "https://gitlab.com/group/project/-/blob/" + rev + "/examples/laplace.py",
		},
		{
			name:       "codeberg",
			repository: "https://codeberg.org/user/project.git",
			want:       "https://codeberg.org/user/project/src/commit/" + rev + "/examples/laplace.py",
		},
		{name: "missing .git", repository: "https://github.com/evalf/nutils", wantErr: true},
		{name: "unknown host", repository: "https://example.org/x.git", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScriptURL(tt.repository, rev, "examples/laplace.py")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ScriptURL() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScriptURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ScriptURL() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ScriptURL("https://example.org/x.git", rev, "s.py"); !errors.Is(err, ErrUnsupportedHost) {
		t.Errorf("error = %v, want ErrUnsupportedHost", err)
	}
}

func TestMarkdown(t *testing.T) {
	got, err := Markdown("Solves the *Navier-Stokes* equations.\n\n<script>x</script>\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "<em>Navier-Stokes</em>") {
		t.Errorf("Markdown() = %q, want emphasis", got)
	}
	if strings.Contains(string(got), "<script>") {
		t.Errorf("Markdown() passed raw HTML through: %q", got)
	}
}

func sampleRecord() metadata.Record {
	return metadata.Record{
		ID:          "official-laplace",
		Name:        "Laplace",
		Authors:     []string{"Evalf", "other Nutils contributors"},
		Description: "A *simple* example.",
		Repository:  "https://github.com/evalf/nutils.git",
		Revision:    "0123456789abcdef0123456789abcdef01234567",
		Script:      "examples/laplace.py",
		Tags:        []string{"official"},
	}
}

func TestNewExamplePage(t *testing.T) {
	results := &report.Entry{Revisions: map[string]report.Revision{
		"nutils:8": {Revision: "abc", Passed: false, Finished: time.Now()},
		"nutils:7": {Revision: "abc", Passed: true, Finished: time.Now()},
	}}

	page, err := NewExamplePage(sampleRecord(), []string{"a.png", "b.png"}, results)
	if err != nil {
		t.Fatalf("NewExamplePage() error = %v", err)
	}
	if page.Authors != "Evalf and other Nutils contributors" {
		t.Errorf("Authors = %q", page.Authors)
	}
	if !strings.Contains(page.ScriptURL, "/blob/0123456789abcdef") {
		t.Errorf("ScriptURL = %q", page.ScriptURL)
	}
	if len(page.Results) != 2 || page.Results[0].Image != "nutils:7" || !page.Results[0].Passed {
		t.Errorf("Results = %+v, want sorted by image", page.Results)
	}

	rec := sampleRecord()
	rec.Repository = "https://example.org/x.git"
	if _, err := NewExamplePage(rec, nil, nil); err == nil {
		t.Error("NewExamplePage() should fail for an unsupported host")
	}
}

func TestNewListEntry(t *testing.T) {
	entry := NewListEntry(sampleRecord(), "h3.jpg", true)
	if entry.Thumbnail != "official-laplace/h3.jpg" || entry.Href != "official-laplace/" {
		t.Errorf("entry = %+v", entry)
	}
	if got := NewListEntry(sampleRecord(), "", false); got.Thumbnail != "" {
		t.Errorf("Thumbnail = %q, want none", got.Thumbnail)
	}
}
