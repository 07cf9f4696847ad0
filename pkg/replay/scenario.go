// Package replay implements the ReplayExecutor and Recorder for deterministic
// offline harness runs using pre-recorded tool responses.
package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario represents a replay scenario file containing pre-recorded
// command responses, snapshot artifacts, and the health endpoint body.
type Scenario struct {
	Health   string            `yaml:"health,omitempty"`
	Commands []ScenarioCommand `yaml:"commands"`
	Files    map[string]string `yaml:"files,omitempty"` // artifact path → content
}

// ScenarioCommand is a pre-recorded command with its expected output.
// An argv element of "*" matches any single argument. Repeat entries are
// never consumed and answer every matching invocation.
type ScenarioCommand struct {
	Argv     []string `yaml:"argv"`
	Stdout   string   `yaml:"stdout"`
	Stderr   string   `yaml:"stderr,omitempty"`
	ExitCode int      `yaml:"exit_code"`
	Repeat   bool     `yaml:"repeat,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Commands) == 0 {
		return nil, fmt.Errorf("scenario must have at least one command")
	}
	return &s, nil
}

// Save writes the scenario as YAML.
func (s *Scenario) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}

// ReadFile serves recorded artifact content in place of the filesystem.
func (s *Scenario) ReadFile(path string) ([]byte, error) {
	content, ok := s.Files[path]
	if !ok {
		return nil, fmt.Errorf("replay: no recorded file %s: %w", path, os.ErrNotExist)
	}
	return []byte(content), nil
}
