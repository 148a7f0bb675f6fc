// Package metadata resolves example descriptors into records.
//
// Two descriptor shapes exist and are parsed independently:
//   - declarative YAML files for user examples (ID prefix "user-")
//   - comment headers of scripts in the official repository
//     (ID prefix "official-")
//
// Both produce the same Record type. A descriptor either resolves fully or
// fails with a *ResolveError; partially populated records are never
// returned.
package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"
)

const (
	userPattern     = "*.{yaml,yml}"
	officialPattern = "*.py"
)

// Source is a descriptor waiting to be resolved.
type Source struct {
	Kind Kind
	ID   string
	Path string
}

// Declarative returns the Source for a YAML descriptor.
func Declarative(path string) Source {
	return Source{Kind: KindUser, ID: KindUser.String() + "-" + stem(path), Path: path}
}

// Embedded returns the Source for an official example script.
func Embedded(path string) Source {
	return Source{Kind: KindOfficial, ID: KindOfficial.String() + "-" + stem(path), Path: path}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Resolve parses the descriptor into a Record. prov is only consulted for
// official examples.
func (s Source) Resolve(ctx context.Context, prov Provenance) (Record, error) {
	var (
		rec Record
		err error
	)
	switch s.Kind {
	case KindOfficial:
		rec, err = ParseEmbedded(ctx, s.Path, prov)
	default:
		rec, err = ParseDeclarative(s.Path)
	}
	if err != nil {
		return Record{}, &ResolveError{ID: s.ID, Path: s.Path, Err: err}
	}

	rec.ID = s.ID
	rec.Kind = s.Kind
	rec.Source = s.Path
	return rec, nil
}

// Conflicts returns, for every source whose ID equals an earlier source's
// ID after NFC normalization, a *ResolveError naming that earlier ID. Such
// IDs would share an output directory on file systems that normalize names.
// Record fields themselves are never normalized.
func Conflicts(sources []Source) map[string]error {
	seen := make(map[string]string, len(sources))
	conflicts := make(map[string]error)
	for _, s := range sources {
		key := norm.NFC.String(s.ID)
		first, ok := seen[key]
		if !ok {
			seen[key] = s.ID
			continue
		}
		conflicts[s.ID] = &ResolveError{
			ID:   s.ID,
			Path: s.Path,
			Err:  fmt.Errorf("%w: same as %s after Unicode normalization", ErrDuplicateID, first),
		}
	}
	return conflicts
}

// Discover lists the descriptors in userDir (YAML files) and officialDir
// (Python scripts other than __init__.py), sorted by ID. Either directory
// may be empty or missing.
func Discover(userDir, officialDir string) ([]Source, error) {
	var sources []Source

	user, err := glob(userDir, userPattern)
	if err != nil {
		return nil, err
	}
	for _, path := range user {
		sources = append(sources, Declarative(path))
	}

	official, err := glob(officialDir, officialPattern)
	if err != nil {
		return nil, err
	}
	for _, path := range official {
		if filepath.Base(path) == "__init__.py" {
			continue
		}
		sources = append(sources, Embedded(path))
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].ID < sources[j].ID
	})
	return sources, nil
}

func glob(dir, pattern string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list descriptors in %s: %w", dir, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return paths, nil
}
