package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerFile is written into an output directory only after a successful run.
const MarkerFile = ".complete"

// Marker records what produced a completed output directory.
type Marker struct {
	Commit   string    `json:"commit"`
	Image    string    `json:"image"`
	Script   string    `json:"script"`
	Finished time.Time `json:"finished"`
}

// Workspace owns the per-example output directories under Root.
type Workspace struct {
	Root string
}

// Dir returns the final output directory of example id.
func (w *Workspace) Dir(id string) string {
	return filepath.Join(w.Root, id)
}

// Begin creates an empty staging directory for a run of example id. The
// final directory is untouched until Commit.
func (w *Workspace) Begin(id string) (*Staging, error) {
	if err := os.MkdirAll(w.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	dir, err := os.MkdirTemp(w.Root, "."+id+".tmp-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Staging{Dir: dir, final: w.Dir(id)}, nil
}

// Reusable reports whether the output of id was completed by a successful
// run of the same commit in the same image.
func (w *Workspace) Reusable(id, commit, image string) bool {
	m, err := w.ReadMarker(id)
	if err != nil || m == nil {
		return false
	}
	return m.Commit == commit && m.Image == image
}

// ReadMarker returns the completion marker of id, or nil when the directory
// was never completed.
func (w *Workspace) ReadMarker(id string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(w.Dir(id), MarkerFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read completion marker: %w", err)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse completion marker: %w", err)
	}
	return &m, nil
}

// Staging is an output directory that has not been published yet.
type Staging struct {
	Dir   string
	final string
	done  bool
}

// Commit publishes the staging directory as the final output directory,
// replacing any previous one. The completion marker is written only when
// res succeeded.
func (s *Staging) Commit(res *Result, m Marker) (string, error) {
	if s.done {
		return "", errors.New("staging directory already committed or discarded")
	}
	if res != nil && res.State == Succeeded {
		m.Finished = res.Finished.UTC()
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode completion marker: %w", err)
		}
		if err := os.WriteFile(filepath.Join(s.Dir, MarkerFile), data, 0644); err != nil {
			return "", fmt.Errorf("failed to write completion marker: %w", err)
		}
	}

	// Move the previous directory aside first: rename cannot replace a
	// non-empty directory.
	var old string
	if _, err := os.Stat(s.final); err == nil {
		old = s.Dir + ".old"
		if err := os.Rename(s.final, old); err != nil {
			return "", fmt.Errorf("failed to replace %s: %w", s.final, err)
		}
	}
	if err := os.Rename(s.Dir, s.final); err != nil {
		if old != "" {
			os.Rename(old, s.final)
		}
		return "", fmt.Errorf("failed to publish %s: %w", s.final, err)
	}
	s.done = true
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			return s.final, fmt.Errorf("failed to remove previous output: %w", err)
		}
	}
	return s.final, nil
}

// Discard removes the staging directory unless it was committed.
func (s *Staging) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	return os.RemoveAll(s.Dir)
}
