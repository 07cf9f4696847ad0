package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RealExecutor runs commands via os/exec.
type RealExecutor struct {
	Logger *zap.Logger
}

// Execute runs a command with the given arguments and environment. A non-zero
// exit status is reported through CommandResult.ExitCode, not as an error.
func (r *RealExecutor) Execute(ctx context.Context, command string, args []string, env []string) (*CommandResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	if len(env) > 0 {
		cmd.Env = env
	}
	// Children that inherit the pipes must not keep Wait blocked past the deadline.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			r.logger().Debug("command failed to start",
				zap.String("command", command),
				zap.Strings("args", args),
				zap.Error(err))
			return nil, fmt.Errorf("execute command %q: %w", command, err)
		}
	}

	r.logger().Debug("command finished",
		zap.String("command", command),
		zap.Strings("args", args),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Int("stderr_bytes", stderr.Len()))

	return &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

func (r *RealExecutor) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Run executes argv through ex and returns the combined stdout and stderr.
//
// Exit codes are deliberately not surfaced: callers decide success by the
// presence of expected content. A command that cannot be started yields its
// start error as output. The only error returned is ErrTimeout (or the
// parent context's cancellation).
func Run(ctx context.Context, ex CommandExecutor, timeout time.Duration, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", nil
	}
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := ex.Execute(ctx, argv[0], argv[1:], nil)

	if perr := parent.Err(); perr != nil {
		return res.Combined(), perr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res.Combined(), fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, CommandLine(argv))
	}
	if err != nil {
		return err.Error(), nil
	}
	return res.Combined(), nil
}

// CommandLine renders argv for diagnostics, quoting arguments with spaces.
func CommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			parts[i] = fmt.Sprintf("%q", a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
