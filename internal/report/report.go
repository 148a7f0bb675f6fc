// Package report exports the latest validation result per example and
// container image as a JSON document.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/evalf/examples-gallery/internal/store"
)

// Report is the status document written by 'gallery validate --export'.
type Report struct {
	Generated time.Time         `json:"generated"`
	Examples  map[string]*Entry `json:"examples"`
}

// Entry holds the results of one example, keyed by container image.
type Entry struct {
	// FetchFailed is set when the example could not be verified in at
	// least one image because its revision could not be fetched.
	FetchFailed bool                `json:"fetch_failed"`
	Revisions   map[string]Revision `json:"revisions"`
}

// Revision is the verdict of one run.
type Revision struct {
	Revision string    `json:"revision"`
	Passed   bool      `json:"passed"`
	Message  string    `json:"message,omitempty"`
	Finished time.Time `json:"finished"`
}

// Build assembles a report from the latest runs. Runs that never reached
// a verdict (fetch failures, runtime errors) do not produce a revision.
func Build(runs []*store.Run) *Report {
	r := &Report{
		Generated: time.Now().UTC(),
		Examples:  make(map[string]*Entry),
	}
	for _, run := range runs {
		e := r.entry(run.ExampleID)
		switch run.Status {
		case store.StatusFetchFailed:
			e.FetchFailed = true
		case store.StatusPassed, store.StatusFailed:
			e.Revisions[run.Image] = Revision{
				Revision: run.Revision,
				Passed:   run.Passed(),
				Message:  run.Message,
				Finished: run.FinishedAt.UTC(),
			}
		}
	}
	return r
}

// FromStore builds a report from the run history.
func FromStore(s *store.Store) (*Report, error) {
	runs, err := s.LatestResults()
	if err != nil {
		return nil, fmt.Errorf("failed to load latest results: %w", err)
	}
	return Build(runs), nil
}

func (r *Report) entry(id string) *Entry {
	e, ok := r.Examples[id]
	if !ok {
		e = &Entry{Revisions: make(map[string]Revision)}
		r.Examples[id] = e
	}
	return e
}

// Lookup returns the entry of example id, or nil.
func (r *Report) Lookup(id string) *Entry {
	if r == nil {
		return nil
	}
	return r.Examples[id]
}

// Images returns the images with a verdict, sorted.
func (e *Entry) Images() []string {
	images := make([]string, 0, len(e.Revisions))
	for image := range e.Revisions {
		images = append(images, image)
	}
	sort.Strings(images)
	return images
}

// Write stores the report at path. The file is replaced atomically.
func Write(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report JSON: %w", err)
	}
	if r.Examples == nil {
		r.Examples = make(map[string]*Entry)
	}
	for id, e := range r.Examples {
		if e == nil {
			delete(r.Examples, id)
			continue
		}
		if e.Revisions == nil {
			e.Revisions = make(map[string]Revision)
		}
	}
	return &r, nil
}
