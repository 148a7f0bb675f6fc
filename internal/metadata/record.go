package metadata

import (
	"errors"
	"fmt"
)

// Kind identifies which descriptor shape a record was resolved from.
type Kind int

const (
	// KindUser records come from declarative YAML descriptors.
	KindUser Kind = iota
	// KindOfficial records come from the comment header of a script in the
	// official repository.
	KindOfficial
)

// String returns the ID namespace for the kind ("user" or "official").
func (k Kind) String() string {
	switch k {
	case KindOfficial:
		return "official"
	default:
		return "user"
	}
}

// Record is the normalized identity and provenance of one example.
// Records are built once per run and treated as immutable afterwards.
type Record struct {
	ID     string
	Kind   Kind
	Source string // descriptor path

	Name        string
	Authors     []string
	Description string // markdown
	Repository  string
	Revision    string // branch name or commit
	Script      string // relative to the repository root, slash separated
	Tags        []string

	// ImageNames restricts and orders the tracked image names. nil means
	// every name found in the log is tracked in first-seen order.
	ImageNames     []string
	ImageIndex     *int
	ThumbnailIndex *int
}

// WithRevision returns a copy of r pinned to the given commit.
func (r Record) WithRevision(commit string) Record {
	out := r
	out.Authors = cloneStrings(r.Authors)
	out.Tags = cloneStrings(r.Tags)
	out.ImageNames = cloneStrings(r.ImageNames)
	out.Revision = commit
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Provenance holds the organizational constants attached to official
// examples, whose scripts carry no author or repository information.
type Provenance struct {
	Authors    []string
	Repository string
}

var (
	// ErrMissingField is returned when a declarative descriptor lacks a
	// required key.
	ErrMissingField = errors.New("missing required field")

	// ErrHeader is returned when an embedded descriptor's comment header is
	// malformed.
	ErrHeader = errors.New("malformed comment header")

	// ErrModeline is returned for an unknown or malformed modeline directive.
	ErrModeline = errors.New("invalid modeline")

	// ErrOutsideRepository is returned when a script does not live under the
	// top level of its enclosing git checkout.
	ErrOutsideRepository = errors.New("script is outside the repository root")

	// ErrDuplicateID is returned when two descriptors' IDs differ only in
	// Unicode normalization.
	ErrDuplicateID = errors.New("duplicate example ID")
)

// ResolveError reports a descriptor that could not be turned into a Record.
type ResolveError struct {
	ID   string
	Path string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to generate metadata for %s from %s: %v", e.ID, e.Path, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
