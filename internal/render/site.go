// Package render writes the static gallery website.
package render

import (
	"bufio"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	ExampleTemplate = "example.html"
	ListTemplate    = "examples-list.html"
	PageFile        = "index.html"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// Site renders pages with the example and overview templates.
type Site struct {
	example *template.Template
	list    *template.Template
}

// NewSite loads the templates from dir, or the built-in ones when dir is
// empty. Executing a template that references an unknown key fails.
func NewSite(dir string) (*Site, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(defaultTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	example, err := parse(fsys, ExampleTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to load example template: %w", err)
	}
	list, err := parse(fsys, ListTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to load example-list template: %w", err)
	}
	return &Site{example: example, list: list}, nil
}

func parse(fsys fs.FS, name string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").ParseFS(fsys, name)
}

// RenderExample executes the example template.
func (s *Site) RenderExample(w io.Writer, page *ExamplePage) error {
	return s.example.Execute(w, page)
}

// RenderList executes the overview template.
func (s *Site) RenderList(w io.Writer, entries []ListEntry) error {
	return s.list.Execute(w, entries)
}

// WriteExample writes dir/index.html.
func (s *Site) WriteExample(dir string, page *ExamplePage) error {
	return writePage(filepath.Join(dir, PageFile), func(w io.Writer) error {
		return s.RenderExample(w, page)
	})
}

// WriteList writes root/index.html.
func (s *Site) WriteList(root string, entries []ListEntry) error {
	return writePage(filepath.Join(root, PageFile), func(w io.Writer) error {
		return s.RenderList(w, entries)
	})
}

func writePage(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := render(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// CopyStatic copies the regular files directly inside src to dst.
// Subdirectories are skipped; a missing src is not an error.
func CopyStatic(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read static directory: %w", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
