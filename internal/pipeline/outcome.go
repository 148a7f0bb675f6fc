package pipeline

import (
	"github.com/evalf/examples-gallery/internal/metadata"
	"github.com/evalf/examples-gallery/internal/sandbox"
)

// FailureKind classifies why an example did not verify.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureMetadata: the descriptor could not be resolved.
	FailureMetadata
	// FailureFetch: the revision could not be materialized. The example is
	// reported as "could not verify", not as failing.
	FailureFetch
	// FailureScript: the script ran and exited non-zero or timed out.
	FailureScript
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "ok"
	case FailureMetadata:
		return "metadata"
	case FailureFetch:
		return "fetch"
	case FailureScript:
		return "script"
	default:
		return "unknown"
	}
}

// OfficialID identifies the outcome standing in for the official examples
// when their repository could not be fetched.
const OfficialID = "official"

// Outcome is the result of processing one example.
type Outcome struct {
	ID     string
	Source string

	// Record is pinned to the commit that ran. It is the zero value for
	// metadata failures.
	Record  metadata.Record
	Failure FailureKind
	Err     error

	// Result is nil when the output was reused or the script never ran.
	Result *sandbox.Result
	Reused bool
	// Interrupted is set when processing stopped on a pipeline-fatal error
	// or cancellation; the example has no verdict.
	Interrupted bool

	OutputDir    string
	Images       []string
	Thumbnail    string
	HasThumbnail bool
}

// OK reports whether the example verified.
func (o *Outcome) OK() bool {
	return o.Failure == FailureNone && !o.Interrupted
}

// Status is a short human-readable verdict.
func (o *Outcome) Status() string {
	if o.Interrupted {
		if o.Result != nil && o.Result.State == sandbox.SandboxError {
			return "sandbox error"
		}
		return "interrupted"
	}
	switch o.Failure {
	case FailureNone:
		if o.Reused {
			return "reused"
		}
		return "passed"
	case FailureFetch:
		return "could not verify"
	case FailureScript:
		if o.Result != nil && o.Result.TimedOut {
			return "timed out"
		}
		return "failed"
	case FailureMetadata:
		return "invalid metadata"
	default:
		return "unknown"
	}
}
