// Package providers defines the CommandExecutor interface and the real
// os/exec implementation used to reach every external tool.
package providers

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by Run when a command does not finish within its
// timeout. It is the only failure Run surfaces to callers.
var ErrTimeout = errors.New("command timed out")

// CommandResult holds the output of a single command execution.
type CommandResult struct {
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Combined returns stdout followed by stderr.
func (r *CommandResult) Combined() string {
	if r == nil {
		return ""
	}
	return string(r.Stdout) + string(r.Stderr)
}

// CommandExecutor abstracts real vs replay command execution.
// Implementations: RealExecutor, replay.ReplayExecutor.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, args []string, env []string) (*CommandResult, error)
}
