package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// runTimeLayout is fixed-width so that stored timestamps sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Example operations

// UpsertExample inserts or replaces an example.
func (s *Store) UpsertExample(ex *Example) error {
	if ex.UpdatedAt.IsZero() {
		ex.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO examples (id, name, kind, repository, revision, script, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			repository = excluded.repository,
			revision = excluded.revision,
			script = excluded.script,
			updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		ex.ID,
		ex.Name,
		ex.Kind,
		ex.Repository,
		ex.Revision,
		ex.Script,
		ex.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return classify(err, "failed to upsert example %s", ex.ID)
	}
	return nil
}

// GetExample retrieves an example by ID.
func (s *Store) GetExample(id string) (*Example, error) {
	query := `
		SELECT id, name, kind, repository, revision, script, updated_at
		FROM examples
		WHERE id = ?
	`

	ex, err := scanExample(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("example %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(err, "failed to get example %s", id)
	}
	return ex, nil
}

// ListExamples returns all examples ordered by ID.
func (s *Store) ListExamples() ([]*Example, error) {
	query := `
		SELECT id, name, kind, repository, revision, script, updated_at
		FROM examples
		ORDER BY id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, classify(err, "failed to list examples")
	}
	defer rows.Close()

	var examples []*Example
	for rows.Next() {
		ex, err := scanExample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan example row: %w", err)
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating examples: %w", err)
	}
	return examples, nil
}

// Run operations

// InsertRun records a run, assigning an ID when it has none.
func (s *Store) InsertRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO runs
		(id, example_id, image, revision, status, exit_code, message, image_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.ID,
		run.ExampleID,
		run.Image,
		run.Revision,
		string(run.Status),
		run.ExitCode,
		run.Message,
		run.ImageCount,
		run.StartedAt.UTC().Format(runTimeLayout),
		run.FinishedAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return classify(err, "failed to insert run for %s", run.ExampleID)
	}
	return nil
}

// ListRuns returns the runs of an example, newest first.
func (s *Store) ListRuns(exampleID string) ([]*Run, error) {
	query := `
		SELECT id, example_id, image, revision, status, exit_code, message, image_count, started_at, finished_at
		FROM runs
		WHERE example_id = ?
		ORDER BY finished_at DESC, rowid DESC
	`

	rows, err := s.db.Query(query, exampleID)
	if err != nil {
		return nil, classify(err, "failed to list runs for %s", exampleID)
	}
	return collectRuns(rows)
}

// LatestResults returns the most recent run per example and image, ordered
// by example ID and image.
func (s *Store) LatestResults() ([]*Run, error) {
	query := `
		SELECT r.id, r.example_id, r.image, r.revision, r.status, r.exit_code, r.message,
			r.image_count, r.started_at, r.finished_at
		FROM runs r
		WHERE r.rowid = (
			SELECT r2.rowid FROM runs r2
			WHERE r2.example_id = r.example_id AND r2.image = r.image
			ORDER BY r2.finished_at DESC, r2.rowid DESC
			LIMIT 1
		)
		ORDER BY r.example_id, r.image
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, classify(err, "failed to query latest results")
	}
	return collectRuns(rows)
}

// GetRunCount returns the total number of recorded runs.
func (s *Store) GetRunCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, classify(err, "failed to count runs")
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExample(row scanner) (*Example, error) {
	var ex Example
	var updatedAt string
	if err := row.Scan(&ex.ID, &ex.Name, &ex.Kind, &ex.Repository, &ex.Revision, &ex.Script, &updatedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at for %s: %w", ex.ID, err)
	}
	ex.UpdatedAt = t
	return &ex, nil
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var status string
		var revision, message sql.NullString
		var exitCode, imageCount sql.NullInt64
		var startedAt, finishedAt string

		err := rows.Scan(
			&run.ID,
			&run.ExampleID,
			&run.Image,
			&revision,
			&status,
			&exitCode,
			&message,
			&imageCount,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		run.Status = Status(status)
		run.Revision = revision.String
		run.Message = message.String
		run.ExitCode = int(exitCode.Int64)
		run.ImageCount = int(imageCount.Int64)

		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for run %s: %w", run.ID, err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
