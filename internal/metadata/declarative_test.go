package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const fullDescriptor = `name: Lid-driven cavity
authors:
  - Jane Doe
  - John Roe
description: |
  Solves the *lid-driven cavity* problem.
repository: https://github.com/example/cavity.git
revision: main
script: cavity.py
tags:
  - fluid
  - stokes
images:
  - velocity
  - pressure
image_index: 2
thumbnail_index: 1
`

func writeDescriptor(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}
	return path
}

func TestParseDeclarativeFull(t *testing.T) {
	rec, err := ParseDeclarative(writeDescriptor(t, "cavity.yaml", fullDescriptor))
	if err != nil {
		t.Fatalf("ParseDeclarative() error = %v", err)
	}

	if rec.Name != "Lid-driven cavity" {
		t.Errorf("Name = %q", rec.Name)
	}
	if !reflect.DeepEqual(rec.Authors, []string{"Jane Doe", "John Roe"}) {
		t.Errorf("Authors = %v", rec.Authors)
	}
	if rec.Description != "Solves the *lid-driven cavity* problem.\n" {
		t.Errorf("Description = %q", rec.Description)
	}
	if rec.Repository != "https://github.com/example/cavity.git" {
		t.Errorf("Repository = %q", rec.Repository)
	}
	if rec.Revision != "main" {
		t.Errorf("Revision = %q", rec.Revision)
	}
	if rec.Script != "cavity.py" {
		t.Errorf("Script = %q", rec.Script)
	}
	if !reflect.DeepEqual(rec.Tags, []string{"fluid", "stokes"}) {
		t.Errorf("Tags = %v", rec.Tags)
	}
	if !reflect.DeepEqual(rec.ImageNames, []string{"velocity", "pressure"}) {
		t.Errorf("ImageNames = %v", rec.ImageNames)
	}
	if rec.ImageIndex == nil || *rec.ImageIndex != 2 {
		t.Errorf("ImageIndex = %v, want 2", rec.ImageIndex)
	}
	if rec.ThumbnailIndex == nil || *rec.ThumbnailIndex != 1 {
		t.Errorf("ThumbnailIndex = %v, want 1", rec.ThumbnailIndex)
	}
	if rec.Kind != KindUser {
		t.Errorf("Kind = %v, want user", rec.Kind)
	}
}

func TestParseDeclarativeOptionalFields(t *testing.T) {
	minimal := `name: n
authors: [a]
description: d
repository: https://gitlab.com/x/y.git
commit: 0123456789abcdef0123456789abcdef01234567
script: s.py
tags: []
`
	rec, err := ParseDeclarative(writeDescriptor(t, "m.yaml", minimal))
	if err != nil {
		t.Fatalf("ParseDeclarative() error = %v", err)
	}
	if rec.ImageNames != nil {
		t.Errorf("ImageNames = %v, want nil (discovery mode)", rec.ImageNames)
	}
	if rec.ImageIndex != nil || rec.ThumbnailIndex != nil {
		t.Error("indices should be absent")
	}
	if rec.Revision != "0123456789abcdef0123456789abcdef01234567" {
		t.Errorf("commit alias not applied, Revision = %q", rec.Revision)
	}
	if rec.Tags == nil || len(rec.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil", rec.Tags)
	}

	withEmptyImages := minimal + "images: []\nthumbnail: 0\n"
	rec, err = ParseDeclarative(writeDescriptor(t, "e.yaml", withEmptyImages))
	if err != nil {
		t.Fatalf("ParseDeclarative() error = %v", err)
	}
	if rec.ImageNames == nil || len(rec.ImageNames) != 0 {
		t.Errorf("ImageNames = %#v, want empty fixed list", rec.ImageNames)
	}
	if rec.ThumbnailIndex == nil || *rec.ThumbnailIndex != 0 {
		t.Errorf("thumbnail alias not applied: %v", rec.ThumbnailIndex)
	}
}

func TestParseDeclarativeErrors(t *testing.T) {
	drop := func(key string) string {
		var kept []string
		skipping := false
		for _, line := range strings.Split(fullDescriptor, "\n") {
			if strings.HasPrefix(line, key+":") {
				skipping = true
				continue
			}
			if skipping && strings.HasPrefix(line, " ") {
				continue
			}
			skipping = false
			kept = append(kept, line)
		}
		return strings.Join(kept, "\n")
	}

	tests := []struct {
		name        string
		content     string
		wantMissing bool
	}{
		{name: "missing name", content: drop("name"), wantMissing: true},
		{name: "missing authors", content: drop("authors"), wantMissing: true},
		{name: "missing description", content: drop("description"), wantMissing: true},
		{name: "missing repository", content: drop("repository"), wantMissing: true},
		{name: "missing revision", content: drop("revision"), wantMissing: true},
		{name: "missing script", content: drop("script"), wantMissing: true},
		{name: "missing tags", content: drop("tags"), wantMissing: true},
		{name: "unknown key", content: fullDescriptor + "colour: blue\n"},
		{name: "wrong type", content: strings.Replace(fullDescriptor, "image_index: 2", "image_index: two", 1)},
		{name: "negative index", content: strings.Replace(fullDescriptor, "image_index: 2", "image_index: -1", 1)},
		{name: "revision and commit", content: fullDescriptor + "commit: abc\n"},
		{name: "thumbnail and alias", content: fullDescriptor + "thumbnail: 0\n"},
		{name: "not yaml", content: "name: [unterminated\n"},
		{name: "empty", content: ""},
		{name: "two documents", content: fullDescriptor + "---\nname: other\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseDeclarative(writeDescriptor(t, "bad.yaml", tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !reflect.DeepEqual(rec, Record{}) {
				t.Errorf("partial record returned: %+v", rec)
			}
			if tt.wantMissing && !errors.Is(err, ErrMissingField) {
				t.Errorf("error = %v, want ErrMissingField", err)
			}
		})
	}
}

func TestParseDeclarativeUnreadable(t *testing.T) {
	_, err := ParseDeclarative(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}
