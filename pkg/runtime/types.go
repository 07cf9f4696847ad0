// Package runtime drives the staged end-to-end run: stage ordering,
// fail-fast handling, trace output and the run manifest.
package runtime

import (
	"time"

	"github.com/ormasoftchile/clickcheck/pkg/assertions"
	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/evidence"
)

// Stage status values.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Run outcome states.
const (
	OutcomePassed  = "passed"  // every stage ran, no assertion failed
	OutcomeFailed  = "failed"  // every stage ran, some assertion failed
	OutcomeAborted = "aborted" // a stage failed and the run stopped
)

// RunContext carries values produced by one stage for later stages.
type RunContext struct {
	RunID string
	Host  config.Actor // creates the room
	Guest config.Actor // joins by code

	RoomCode       string
	RoomCodeSource string // "url" or "snapshot"
}

// StageResult is the recorded outcome of one stage.
type StageResult struct {
	RunID      string        `json:"run_id"`
	Stage      string        `json:"stage"`
	Index      int           `json:"index"`
	Status     string        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Assertions int           `json:"assertions,omitempty"`
}

// TraceEvent is one JSONL trace line.
type TraceEvent struct {
	Type      string             `json:"type"` // stage_result, assertion
	Timestamp time.Time          `json:"timestamp"`
	RunID     string             `json:"run_id"`
	Stage     *StageResult       `json:"stage,omitempty"`
	Assertion *assertions.Record `json:"assertion,omitempty"`
}

// RunManifest records the complete metadata for a run.
// Written as run.yaml after a run completes (or fails).
type RunManifest struct {
	RunID         string              `yaml:"run_id"              json:"run_id"`
	AppURL        string              `yaml:"app_url"             json:"app_url"`
	Driver        string              `yaml:"driver"              json:"driver"`
	DB            string              `yaml:"db"                  json:"db"`
	StartedAt     string              `yaml:"started_at"          json:"started_at"`
	EndedAt       string              `yaml:"ended_at"            json:"ended_at"`
	RoomCode      string              `yaml:"room_code,omitempty" json:"room_code,omitempty"`
	Outcome       *OutcomeRecord      `yaml:"outcome"             json:"outcome"`
	StagesSummary StagesSummary       `yaml:"stages_summary"      json:"stages_summary"`
	Assertions    AssertionsSummary   `yaml:"assertions"          json:"assertions"`
	Artifacts     []evidence.Artifact `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	ExitCode      int                 `yaml:"exit_code"           json:"exit_code"`
}

// OutcomeRecord captures the terminal outcome of a run.
type OutcomeRecord struct {
	State   string `yaml:"state"             json:"state"`
	Stage   string `yaml:"stage,omitempty"   json:"stage,omitempty"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// StagesSummary counts stages by status.
type StagesSummary struct {
	Total   int `yaml:"total"   json:"total"`
	Passed  int `yaml:"passed"  json:"passed"`
	Failed  int `yaml:"failed"  json:"failed"`
	Skipped int `yaml:"skipped" json:"skipped"`
}

// AssertionsSummary mirrors the ledger totals.
type AssertionsSummary struct {
	Passed int `yaml:"passed" json:"passed"`
	Failed int `yaml:"failed" json:"failed"`
}
