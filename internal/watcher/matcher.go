package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns selects the files a site build reads.
var DefaultPatterns = []string{"*.{yaml,yml}", "*.html", "*.css", "*.js", "*.{png,jpg,svg,ico}"}

// Filter decides which changed paths trigger a rebuild.
type Filter struct {
	patterns []string
}

// NewFilter validates patterns. An empty list uses DefaultPatterns.
func NewFilter(patterns []string) (*Filter, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p}
		}
	}
	return &Filter{patterns: patterns}, nil
}

// PatternError reports a malformed watch pattern.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid watch pattern " + e.Pattern
}

// Match reports whether path names a file a build depends on. Hidden
// files and editor backups never match.
func (f *Filter) Match(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") || strings.HasSuffix(base, "~") {
		return false
	}
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}
