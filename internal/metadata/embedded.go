package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	commentMarker  = "#"
	modelinePrefix = "# example:"
	officialTag    = "official"
)

// header is the information carried by the comment header of an official
// example script.
type header struct {
	name        string
	description string
	thumbnail   *int
	tags        []string
}

// ParseEmbedded resolves an official example from the comment header of the
// script at path. Revision and script path come from the git checkout that
// contains the script; authors and repository from prov.
//
// Expected layout:
//
//	# Name of the example
//	#
//	# Markdown description, one "# " line per line,
//	# with "#" alone for blank lines.
//	...code...
//	# example:thumbnail=1:tags=a,b
func ParseEmbedded(ctx context.Context, path string, prov Provenance) (Record, error) {
	// #nosec G304 -- script paths come from the official examples checkout.
	code, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read script: %w", err)
	}

	h, err := parseHeader(string(code))
	if err != nil {
		return Record{}, err
	}

	script, commit, err := locateInCheckout(ctx, path)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Kind:           KindOfficial,
		Name:           h.name,
		Authors:        cloneStrings(prov.Authors),
		Description:    h.description,
		Repository:     prov.Repository,
		Revision:       commit,
		Script:         script,
		Tags:           h.tags,
		ThumbnailIndex: h.thumbnail,
	}, nil
}

func parseHeader(code string) (header, error) {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.TrimSuffix(code, "\n")
	if code == "" {
		return header{}, fmt.Errorf("%w: premature end of file", ErrHeader)
	}
	lines := strings.Split(code, "\n")

	name, ok := strings.CutPrefix(lines[0], "# ")
	if !ok {
		return header{}, fmt.Errorf("%w: first line should be a comment with the example name", ErrHeader)
	}
	if len(lines) < 2 || lines[1] != commentMarker {
		return header{}, fmt.Errorf("%w: second line should be an empty comment", ErrHeader)
	}

	var desc strings.Builder
	i := 2
	for ; i < len(lines); i++ {
		rest, ok := strings.CutPrefix(lines[i], commentMarker)
		if !ok {
			break
		}
		if text, ok := strings.CutPrefix(rest, " "); ok {
			desc.WriteString(text)
		} else if rest != "" {
			return header{}, fmt.Errorf("%w: line %d: expected space or newline after %q", ErrHeader, i+1, commentMarker)
		}
		desc.WriteByte('\n')
	}

	h := header{
		name:        name,
		description: desc.String(),
		tags:        []string{officialTag},
	}

	// The line ending the description is consumed with it; the modeline is
	// the last line of whatever follows.
	rest := lines[min(i+1, len(lines)):]
	if len(rest) == 0 {
		return h, nil
	}
	modeline, ok := strings.CutPrefix(rest[len(rest)-1], modelinePrefix)
	if !ok {
		return h, nil
	}
	if err := h.applyModeline(modeline); err != nil {
		return header{}, err
	}
	return h, nil
}

func (h *header) applyModeline(modeline string) error {
	for _, item := range strings.Split(modeline, ":") {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("%w: item %q is not key=value", ErrModeline, item)
		}
		switch key {
		case "thumbnail":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: thumbnail %q is not a non-negative integer", ErrModeline, value)
			}
			h.thumbnail = &n
		case "tags":
			h.tags = append(h.tags, strings.Split(value, ",")...)
		default:
			return fmt.Errorf("%w: unknown key %q", ErrModeline, key)
		}
	}
	return nil
}

// locateInCheckout returns the script's slash-separated path relative to the
// top level of its git checkout and the checkout's HEAD commit.
func locateInCheckout(ctx context.Context, path string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve script path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	toplevel, commit, err := revParse(ctx, filepath.Dir(abs))
	if err != nil {
		return "", "", err
	}
	if resolved, err := filepath.EvalSymlinks(toplevel); err == nil {
		toplevel = resolved
	}

	rel, err := filepath.Rel(toplevel, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s is not under %s", ErrOutsideRepository, abs, toplevel)
	}

	return filepath.ToSlash(rel), commit, nil
}
