package replay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ormasoftchile/clickcheck/pkg/providers"
	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// Recorder wraps a CommandExecutor and captures every command it runs, plus
// the snapshot artifacts those commands point at, into a Scenario.
type Recorder struct {
	inner   providers.CommandExecutor
	baseDir string
	secrets []string

	mu       sync.Mutex
	scenario Scenario
}

// NewRecorder creates a recording wrapper. Artifact paths reported by the
// browser tool are resolved against baseDir before being read.
func NewRecorder(inner providers.CommandExecutor, baseDir string) *Recorder {
	return &Recorder{inner: inner, baseDir: baseDir}
}

// SetSecrets configures literal values (connection strings, passwords)
// replaced with "***" in captured argv and output.
func (r *Recorder) SetSecrets(values ...string) {
	for _, v := range values {
		if v != "" {
			r.secrets = append(r.secrets, v)
		}
	}
}

// SetHealth records the health endpoint body observed during the run.
func (r *Recorder) SetHealth(body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenario.Health = body
}

// Execute delegates to the inner executor and records the response.
func (r *Recorder) Execute(ctx context.Context, command string, args []string, env []string) (*providers.CommandResult, error) {
	result, err := r.inner.Execute(ctx, command, args, env)
	if err != nil {
		return nil, err
	}

	argv := make([]string, 0, len(args)+1)
	for _, a := range append([]string{command}, args...) {
		argv = append(argv, r.redactArg(a))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenario.Commands = append(r.scenario.Commands, ScenarioCommand{
		Argv:     argv,
		Stdout:   r.redact(string(result.Stdout)),
		Stderr:   r.redact(string(result.Stderr)),
		ExitCode: result.ExitCode,
	})
	if path, ok := snapshot.ArtifactPath(result.Combined()); ok {
		if data, err := os.ReadFile(filepath.Join(r.baseDir, path)); err == nil {
			if r.scenario.Files == nil {
				r.scenario.Files = make(map[string]string)
			}
			r.scenario.Files[filepath.Join(r.baseDir, path)] = string(data)
		}
	}
	return result, nil
}

// Scenario returns a copy of everything recorded so far.
func (r *Recorder) Scenario() *Scenario {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Scenario{
		Health:   r.scenario.Health,
		Commands: append([]ScenarioCommand(nil), r.scenario.Commands...),
	}
	if len(r.scenario.Files) > 0 {
		s.Files = make(map[string]string, len(r.scenario.Files))
		for k, v := range r.scenario.Files {
			s.Files[k] = v
		}
	}
	return &s
}

// redactArg turns an argument that is exactly a secret into the replay
// wildcard so the scenario still matches when replayed with real values.
func (r *Recorder) redactArg(a string) string {
	for _, secret := range r.secrets {
		if a == secret {
			return "*"
		}
	}
	return r.redact(a)
}

func (r *Recorder) redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}
