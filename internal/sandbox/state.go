// Package sandbox runs example scripts inside a network-less container and
// manages the output directory each run writes into.
package sandbox

// State is the lifecycle state of one script execution.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	SandboxError
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case SandboxError:
		return "sandbox_error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == SandboxError
}

// CanTransition reports whether moving from s to next is legal.
// Pending may fail before starting (runtime missing) and Running ends in
// exactly one terminal state.
func (s State) CanTransition(next State) bool {
	switch s {
	case Pending:
		return next == Running || next == SandboxError
	case Running:
		return next.Terminal()
	default:
		return false
	}
}
