package pipeline

import (
	"time"

	"github.com/evalf/examples-gallery/internal/sandbox"
	"github.com/evalf/examples-gallery/internal/store"
)

// Persist records outcomes as runs in image. Metadata failures and the
// official fetch failure have no example to attach to, and reused outputs
// did not run; all are skipped. Interrupted outcomes are recorded only when
// the sandbox itself failed.
func Persist(s *store.Store, image string, outcomes []*Outcome) error {
	for _, o := range outcomes {
		if o.Failure == FailureMetadata || o.Record.ID == "" || o.Reused {
			continue
		}
		if o.Interrupted && (o.Result == nil || o.Result.State != sandbox.SandboxError) {
			continue
		}
		rec := o.Record
		err := s.UpsertExample(&store.Example{
			ID:         o.ID,
			Name:       rec.Name,
			Kind:       rec.Kind.String(),
			Repository: rec.Repository,
			Revision:   rec.Revision,
			Script:     rec.Script,
		})
		if err != nil {
			return err
		}
		if err := s.InsertRun(RunOf(o, image)); err != nil {
			return err
		}
	}
	return nil
}

// RunOf converts an outcome into a run record.
func RunOf(o *Outcome, image string) *store.Run {
	run := &store.Run{
		ExampleID:  o.ID,
		Image:      image,
		Revision:   o.Record.Revision,
		ImageCount: len(o.Images),
		ExitCode:   -1,
	}
	if o.Err != nil {
		run.Message = o.Err.Error()
	}

	switch {
	case o.Result != nil && o.Result.State == sandbox.SandboxError:
		run.Status = store.StatusSandboxError
	case o.Failure == FailureFetch:
		run.Status = store.StatusFetchFailed
		run.Revision = ""
	case o.Failure == FailureScript:
		run.Status = store.StatusFailed
	default:
		run.Status = store.StatusPassed
	}

	if o.Result != nil {
		run.ExitCode = o.Result.ExitCode
		run.StartedAt = o.Result.Started
		run.FinishedAt = o.Result.Finished
	} else {
		now := time.Now()
		run.StartedAt, run.FinishedAt = now, now
	}
	return run
}
