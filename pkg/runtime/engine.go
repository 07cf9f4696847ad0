package runtime

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/clickcheck/pkg/assertions"
	"github.com/ormasoftchile/clickcheck/pkg/browser"
	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/datastore"
	"github.com/ormasoftchile/clickcheck/pkg/evidence"
	"github.com/ormasoftchile/clickcheck/pkg/health"
	"github.com/ormasoftchile/clickcheck/pkg/report"
	"github.com/ormasoftchile/clickcheck/pkg/session"
)

// GenerateRunID creates a unique run identifier: YYYYMMDDTHHmmss-<4 hex bytes>.
func GenerateRunID() string {
	ts := time.Now().Format("20060102T150405")
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%x", ts, suffix)
}

// Stage is one named step of the run. A returned error aborts the run;
// assertions recorded in the ledger never do.
type Stage struct {
	Name  string
	Title string
	Run   func(ctx context.Context, rc *RunContext) error
}

// Journal persists finished runs.
type Journal interface {
	Record(ctx context.Context, m *RunManifest, records []assertions.Record) error
}

// Budgets bound the persistence polls.
type Budgets struct {
	Actors    time.Duration // players rows after registration
	Countdown time.Duration // games row after ready-up
	Round     time.Duration // ended_at after interaction
}

// Options supplies the engine's collaborators.
type Options struct {
	Driver  browser.Driver
	Store   datastore.Store
	Health  health.Fetcher
	Out     *report.Printer
	Logger  *zap.Logger
	Journal Journal
}

// Engine runs the stages in order against one game server.
type Engine struct {
	Config   *config.Config
	Sessions *session.Manager
	Store    datastore.Store
	Health   health.Fetcher
	Out      *report.Printer
	Ledger   *assertions.Ledger
	Logger   *zap.Logger
	Journal  Journal
	Chains   Chains
	Waiter   datastore.Waiter
	Budgets  Budgets
	Stages   []Stage

	// Sleep implements fixed UI settle delays.
	Sleep func(ctx context.Context, d time.Duration) error

	RunID   string
	BaseDir string // empty disables trace and manifest output
	Trace   *TraceWriter

	startedAt time.Time
	results   []*StageResult
	outcome   *OutcomeRecord
	roomCode  string
	artifacts []evidence.Artifact
}

// NewEngine wires an engine from cfg. When cfg.RunDir is set, a run
// directory holding trace.jsonl and run.yaml is created under it.
func NewEngine(cfg *config.Config, opts Options) (*Engine, error) {
	if opts.Driver == nil || opts.Store == nil {
		return nil, errors.New("engine requires a browser driver and a data store")
	}
	chains, err := BuildChains(cfg.Matchers)
	if err != nil {
		return nil, err
	}
	if len(cfg.Actors) != 2 {
		return nil, fmt.Errorf("exactly two actors are required, got %d", len(cfg.Actors))
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = report.New(os.Stdout, false)
	}
	fetch := opts.Health
	if fetch == nil {
		fetch = health.HTTP{}
	}

	e := &Engine{
		Config:   cfg,
		Sessions: session.NewManager(opts.Driver, logger),
		Store:    opts.Store,
		Health:   fetch,
		Out:      out,
		Ledger:   assertions.NewLedger(out),
		Logger:   logger,
		Journal:  opts.Journal,
		Chains:   chains,
		Waiter:   datastore.Waiter{Backoff: datastore.DefaultBackoff, Logger: logger},
		Budgets: Budgets{
			Actors:    config.Duration(cfg.Waits.ClickMS),
			Countdown: config.Duration(cfg.Waits.CountdownMS),
			Round:     cfg.RoundBudget(),
		},
		Sleep: sleepCtx,
		RunID: GenerateRunID(),
	}
	e.Stages = e.DefaultStages()

	if cfg.RunDir != "" {
		e.BaseDir = filepath.Join(cfg.RunDir, e.RunID)
		if err := os.MkdirAll(e.BaseDir, 0755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
		trace, err := NewTraceWriter(filepath.Join(e.BaseDir, "trace.jsonl"))
		if err != nil {
			return nil, err
		}
		e.Trace = trace
	}
	return e, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes every stage in order and returns the process exit status:
// 1 if a stage failed or any assertion failed, else 0.
func (e *Engine) Run(ctx context.Context) int {
	if e.Trace != nil {
		defer e.Trace.Close()
	}
	e.startedAt = time.Now()
	rc := &RunContext{
		RunID: e.RunID,
		Host:  e.Config.Actors[0],
		Guest: e.Config.Actors[1],
	}

	e.Out.Title("Integration Test: Full Game Lifecycle")
	for i, st := range e.Stages {
		title := st.Title
		if title == "" {
			title = st.Name
		}
		e.Out.Stage(title)
		e.Ledger.SetStage(st.Name)

		before := len(e.Ledger.Records())
		start := time.Now()
		err := st.Run(ctx, rc)
		e.roomCode = rc.RoomCode

		res := &StageResult{
			RunID:     e.RunID,
			Stage:     st.Name,
			Index:     i,
			Status:    StatusPassed,
			StartedAt: start,
			Duration:  time.Since(start),
		}
		records := e.Ledger.Records()[before:]
		res.Assertions = len(records)
		if err != nil {
			res.Status = StatusFailed
			res.Error = err.Error()
		}
		e.record(res, records)

		if err != nil {
			return e.abort(ctx, st, err)
		}
	}

	e.Ledger.Summary()
	code := e.Ledger.ExitCode()
	state := OutcomePassed
	if code != 0 {
		state = OutcomeFailed
	}
	e.outcome = &OutcomeRecord{State: state}
	e.finish(ctx, code)
	return code
}

// abort reports a stage failure, closes every open session and ends the run.
func (e *Engine) abort(ctx context.Context, st Stage, err error) int {
	pe := asPrecondition(st.Name, err)
	e.Out.Error("%s", pe.Message)
	if pe.Refs != nil {
		e.Out.Refs(*pe.Refs)
	}
	for _, label := range e.Sessions.Labels() {
		if s, ok := e.Sessions.Get(label); ok && s.Artifact != "" {
			e.Out.Info("Last snapshot (%s): %s", label, s.Artifact)
		}
	}
	e.Logger.Error("stage failed", zap.String("stage", st.Name), zap.Error(err))

	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if cerr := e.Sessions.CloseAll(cleanup); cerr != nil {
		e.Logger.Warn("session cleanup incomplete", zap.Error(cerr))
	}

	e.outcome = &OutcomeRecord{State: OutcomeAborted, Stage: st.Name, Message: pe.Message}
	e.finish(ctx, 1)
	return 1
}

func (e *Engine) record(res *StageResult, records []assertions.Record) {
	e.results = append(e.results, res)
	if e.Trace == nil {
		return
	}
	for _, r := range records {
		if err := e.Trace.WriteAssertion(e.RunID, r); err != nil {
			e.Logger.Warn("trace write failed", zap.Error(err))
		}
	}
	if err := e.Trace.WriteStage(res); err != nil {
		e.Logger.Warn("trace write failed", zap.Error(err))
	}
}

func (e *Engine) finish(ctx context.Context, code int) {
	m := e.BuildManifest()
	m.ExitCode = code
	if e.BaseDir != "" {
		if err := e.WriteManifest(m); err != nil {
			e.Logger.Warn("manifest write failed", zap.Error(err))
		}
	}
	if e.Journal != nil {
		if err := e.Journal.Record(context.WithoutCancel(ctx), m, e.Ledger.Records()); err != nil {
			e.Logger.Warn("history write failed", zap.Error(err))
		}
	}
}

// Results returns the stage results recorded so far.
func (e *Engine) Results() []*StageResult {
	return append([]*StageResult(nil), e.results...)
}

// BuildManifest produces a RunManifest from the current engine state.
func (e *Engine) BuildManifest() *RunManifest {
	sum := StagesSummary{Total: len(e.Stages)}
	for _, r := range e.results {
		switch r.Status {
		case StatusPassed:
			sum.Passed++
		case StatusFailed:
			sum.Failed++
		}
	}
	sum.Skipped = sum.Total - sum.Passed - sum.Failed

	return &RunManifest{
		RunID:         e.RunID,
		AppURL:        e.Config.AppURL,
		Driver:        e.Config.Driver,
		DB:            e.Config.DB,
		StartedAt:     e.startedAt.UTC().Format(time.RFC3339),
		EndedAt:       time.Now().UTC().Format(time.RFC3339),
		RoomCode:      e.roomCode,
		Outcome:       e.outcome,
		StagesSummary: sum,
		Assertions: AssertionsSummary{
			Passed: e.Ledger.Passed(),
			Failed: e.Ledger.Failed(),
		},
		Artifacts: e.artifacts,
		ExitCode:  e.Ledger.ExitCode(),
	}
}

// WriteManifest writes run.yaml to the run directory.
func (e *Engine) WriteManifest(m *RunManifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(e.BaseDir, "run.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
