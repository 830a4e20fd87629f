package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command and returns its combined output.
// Engine clients accept a custom runner so tests can intercept invocations.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// RunCommand is the default CommandRunner backed by os/exec.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
