package store

import (
	"errors"
	"time"
)

// ErrNotInitialized is returned when the database has no schema yet.
var ErrNotInitialized = errors.New("run history not initialized: run 'gallery build' or 'gallery validate' first")

// ErrNotFound is returned when no example has the requested ID.
var ErrNotFound = errors.New("not found")

// Status is the recorded outcome of one run.
type Status string

const (
	StatusPassed       Status = "passed"
	StatusFailed       Status = "failed"
	StatusFetchFailed  Status = "fetch_failed"
	StatusSandboxError Status = "sandbox_error"
)

// Example is the last resolved metadata of an example.
type Example struct {
	ID         string
	Name       string
	Kind       string
	Repository string
	Revision   string
	Script     string
	UpdatedAt  time.Time
}

// Run records one execution of an example in one container image.
type Run struct {
	ID         string
	ExampleID  string
	Image      string
	Revision   string
	Status     Status
	ExitCode   int
	Message    string
	ImageCount int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Passed reports whether the run verified the example.
func (r *Run) Passed() bool {
	return r.Status == StatusPassed
}
