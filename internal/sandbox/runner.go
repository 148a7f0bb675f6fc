package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRuntime = "podman"
	DefaultImage   = "ghcr.io/evalf/nutils:7"
	DefaultTimeout = 30 * time.Minute

	// Exit status podman and docker use when the runtime itself failed,
	// as opposed to the contained process.
	runtimeFailureExitCode = 125

	maxOutput = 64 << 10
)

// Test hooks.
var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
	now            = time.Now

	// waitDelay bounds how long Run waits for the runtime, and anything
	// holding its output, after the stop signal.
	waitDelay     = 10 * time.Second
	removeTimeout = 30 * time.Second
)

// RuntimeError means the container runtime could not do its job. Nothing
// can be verified while it persists, so callers abort the batch.
type RuntimeError struct {
	Runtime string
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("container runtime %s failed: %v", e.Runtime, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Runner executes scripts with a container runtime.
type Runner struct {
	Runtime  string
	Image    string
	Timeout  time.Duration
	AppMount string
	LogMount string
}

// Job is one script execution. TreeDir is mounted read-write at AppMount
// and OutputDir at LogMount; Script is relative to TreeDir. Container names
// the container; Run picks a unique name when it is empty.
type Job struct {
	ID        string
	TreeDir   string
	Script    string
	OutputDir string
	Container string
}

// Result describes a finished execution.
type Result struct {
	State    State
	ExitCode int
	TimedOut bool
	Started  time.Time
	Finished time.Time
	// Output holds the combined runtime output, truncated.
	Output string
}

// Duration returns the wall time of the execution.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// advance moves the result to next. An illegal transition is a bug in Run.
func (r *Result) advance(next State) {
	if !r.State.CanTransition(next) {
		panic(fmt.Sprintf("sandbox: illegal state transition %v -> %v", r.State, next))
	}
	r.State = next
}

func (r *Runner) runtime() string {
	if r.Runtime == "" {
		return DefaultRuntime
	}
	return r.Runtime
}

func (r *Runner) image() string {
	if r.Image == "" {
		return DefaultImage
	}
	return r.Image
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// Args returns the runtime arguments for job, with absolute mount sources.
func (r *Runner) Args(job Job) ([]string, error) {
	tree, err := filepath.Abs(job.TreeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tree directory: %w", err)
	}
	out, err := filepath.Abs(job.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	app, logDir := r.AppMount, r.LogMount
	if app == "" {
		app = "/app"
	}
	if logDir == "" {
		logDir = "/log"
	}
	args := []string{"run", "--rm", "--network=none"}
	if job.Container != "" {
		args = append(args, "--name="+job.Container)
	}
	return append(args,
		"--mount=type=bind,destination="+app+",source="+tree,
		"--mount=type=bind,destination="+logDir+",source="+out,
		r.image(),
		job.Script,
	), nil
}

// Run executes job and blocks until it finishes or times out. A non-nil
// error is either a *RuntimeError or the cancellation of ctx; a script that
// merely fails yields State Failed and a nil error.
//
// On timeout or cancellation the runtime receives SIGTERM, which podman and
// docker forward to the container, and the container is then force-removed
// so the script cannot outlive the run.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	res := &Result{State: Pending, ExitCode: -1}
	runtime := r.runtime()
	if job.Container == "" {
		job.Container = "gallery-" + uuid.NewString()
	}

	args, err := r.Args(job)
	if err != nil {
		return r.fail(res, &RuntimeError{Runtime: runtime, Err: err})
	}
	if _, err := lookPath(runtime); err != nil {
		return r.fail(res, &RuntimeError{Runtime: runtime, Err: err})
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	var output cappedBuffer
	cmd := commandContext(runCtx, runtime, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = waitDelay

	res.advance(Running)
	res.Started = now()
	err = cmd.Run()
	stopped := err != nil && runCtx.Err() != nil
	if stopped {
		if rmErr := r.remove(runtime, job.Container); rmErr != nil {
			fmt.Fprintf(&output, "\nfailed to remove container %s: %v", job.Container, rmErr)
		}
	}
	res.Finished = now()
	res.Output = output.String()

	if stopped && ctx.Err() != nil {
		res.advance(Failed)
		return res, ctx.Err()
	}
	if stopped && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.advance(Failed)
		res.TimedOut = true
		return res, nil
	}
	// ErrWaitDelay: the runtime exited 0 but something kept its output open.
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		res.advance(Succeeded)
		res.ExitCode = 0
		return res, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return r.fail(res, &RuntimeError{Runtime: runtime, Err: err})
	}
	res.ExitCode = exitErr.ExitCode()
	if res.ExitCode == runtimeFailureExitCode {
		return r.fail(res, &RuntimeError{
			Runtime: runtime,
			Err:     fmt.Errorf("exit status %d: %s", res.ExitCode, lastLine(res.Output)),
		})
	}
	res.advance(Failed)
	return res, nil
}

// remove force-removes a container that was stopped early. A container
// that already exited and was cleaned up by --rm makes this fail harmlessly.
func (r *Runner) remove(runtime, container string) error {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	out, err := commandContext(ctx, runtime, "rm", "--force", container).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, lastLine(string(out)))
	}
	return nil
}

func (r *Runner) fail(res *Result, err *RuntimeError) (*Result, error) {
	res.advance(SandboxError)
	if res.Started.IsZero() {
		res.Started = now()
		res.Finished = res.Started
	}
	return res, err
}

// cappedBuffer keeps the first maxOutput bytes written to it.
type cappedBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := maxOutput - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
