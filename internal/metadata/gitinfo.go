package metadata

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// commandContext builds the git invocation. Tests replace it.
var commandContext = exec.CommandContext

// revParse returns the checkout top level and HEAD commit for dir.
func revParse(ctx context.Context, dir string) (string, string, error) {
	cmd := commandContext(ctx, "git", "rev-parse", "--show-toplevel", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", "", fmt.Errorf("git rev-parse failed in %s: %w (stderr: %s)", dir, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", "", fmt.Errorf("git rev-parse failed in %s: %w", dir, err)
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) != 2 {
		return "", "", fmt.Errorf("git rev-parse yielded unexpected output: %q", string(output))
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), nil
}
