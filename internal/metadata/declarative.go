package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// descriptor mirrors the YAML layout of a user example. Pointer and slice
// fields distinguish absent keys from zero values.
type descriptor struct {
	Name           *string  `yaml:"name"`
	Authors        []string `yaml:"authors"`
	Description    *string  `yaml:"description"`
	Repository     *string  `yaml:"repository"`
	Revision       *string  `yaml:"revision"`
	Commit         *string  `yaml:"commit"`
	Script         *string  `yaml:"script"`
	Tags           []string `yaml:"tags"`
	Images         []string `yaml:"images"`
	ImageIndex     *int     `yaml:"image_index"`
	ThumbnailIndex *int     `yaml:"thumbnail_index"`
	Thumbnail      *int     `yaml:"thumbnail"`
}

// ParseDeclarative reads a YAML descriptor. Unknown keys, missing required
// keys and trailing documents are errors; on error the returned Record is
// the zero value.
func ParseDeclarative(path string) (Record, error) {
	// #nosec G304 -- descriptor paths come from the configured examples dir.
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return decodeDeclarative(data)
}

func decodeDeclarative(data []byte) (Record, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d descriptor
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, fmt.Errorf("empty descriptor")
		}
		return Record{}, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("descriptor must contain exactly one document")
	}

	revision, err := oneOf("revision", d.Revision, "commit", d.Commit)
	if err != nil {
		return Record{}, err
	}
	thumbnail, err := oneOf("thumbnail_index", d.ThumbnailIndex, "thumbnail", d.Thumbnail)
	if err != nil {
		return Record{}, err
	}

	switch {
	case d.Name == nil:
		return Record{}, fmt.Errorf("%w: name", ErrMissingField)
	case d.Authors == nil:
		return Record{}, fmt.Errorf("%w: authors", ErrMissingField)
	case d.Description == nil:
		return Record{}, fmt.Errorf("%w: description", ErrMissingField)
	case d.Repository == nil:
		return Record{}, fmt.Errorf("%w: repository", ErrMissingField)
	case revision == nil:
		return Record{}, fmt.Errorf("%w: revision", ErrMissingField)
	case d.Script == nil:
		return Record{}, fmt.Errorf("%w: script", ErrMissingField)
	case d.Tags == nil:
		return Record{}, fmt.Errorf("%w: tags", ErrMissingField)
	}

	if d.ImageIndex != nil && *d.ImageIndex < 0 {
		return Record{}, fmt.Errorf("image_index must not be negative")
	}
	if thumbnail != nil && *thumbnail < 0 {
		return Record{}, fmt.Errorf("thumbnail_index must not be negative")
	}

	return Record{
		Kind:           KindUser,
		Name:           *d.Name,
		Authors:        d.Authors,
		Description:    *d.Description,
		Repository:     *d.Repository,
		Revision:       *revision,
		Script:         *d.Script,
		Tags:           d.Tags,
		ImageNames:     d.Images,
		ImageIndex:     d.ImageIndex,
		ThumbnailIndex: thumbnail,
	}, nil
}

// oneOf returns whichever of a key and its alias was supplied.
func oneOf[T any](key string, value *T, alias string, aliasValue *T) (*T, error) {
	if value != nil && aliasValue != nil {
		return nil, fmt.Errorf("%s and %s are mutually exclusive", key, alias)
	}
	if value != nil {
		return value, nil
	}
	return aliasValue, nil
}
