package providers

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRealExecutorEcho(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX echo")
	}
	r := &RealExecutor{}
	result, err := r.Execute(context.Background(), "echo", []string{"hello"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := strings.TrimSpace(string(result.Stdout))
	if out != "hello" {
		t.Errorf("stdout = %q, want %q", out, "hello")
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
}

func TestRunCombinesStreams(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	out, err := Run(context.Background(), &RealExecutor{}, 5*time.Second, "sh", "-c", "echo out; echo err 1>&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "out") || !strings.Contains(out, "err") {
		t.Errorf("combined output = %q, want both streams", out)
	}
}

func TestRunMissingBinaryIsOutputNotError(t *testing.T) {
	out, err := Run(context.Background(), &RealExecutor{}, 5*time.Second, "clickcheck-no-such-binary-xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "clickcheck-no-such-binary-xyz") {
		t.Errorf("output = %q, want start error text", out)
	}
}

func TestRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	_, err := Run(context.Background(), &RealExecutor{}, 100*time.Millisecond, "sleep", "5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "sleep 5") {
		t.Errorf("error %q should name the command", err)
	}
}

func TestRunEmptyArgv(t *testing.T) {
	out, err := Run(context.Background(), &RealExecutor{}, time.Second)
	if err != nil || out != "" {
		t.Errorf("Run() = %q, %v; want empty", out, err)
	}
}

func TestCommandLineQuotes(t *testing.T) {
	got := CommandLine([]string{"psql", "postgres://x", "-tAc", "SELECT 1"})
	want := `psql postgres://x -tAc "SELECT 1"`
	if got != want {
		t.Errorf("CommandLine = %q, want %q", got, want)
	}
}
