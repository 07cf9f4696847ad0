package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/clickcheck/pkg/browser"
	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/datastore"
	"github.com/ormasoftchile/clickcheck/pkg/health"
	"github.com/ormasoftchile/clickcheck/pkg/providers"
	"github.com/ormasoftchile/clickcheck/pkg/replay"
	"github.com/ormasoftchile/clickcheck/pkg/report"
)

// WireOptions selects how external tools are reached.
type WireOptions struct {
	// ScenarioPath replays pre-recorded tool output instead of running tools.
	ScenarioPath string
	// RecordPath saves every tool invocation as a replay scenario.
	RecordPath string
	// Exec and Health replace the real executor and health probe.
	Exec   providers.CommandExecutor
	Health health.Fetcher

	Out     *report.Printer
	Logger  *zap.Logger
	Journal Journal
}

// Harness is an engine plus the resources it owns.
type Harness struct {
	Engine   *Engine
	Recorder *replay.Recorder
	Replay   *replay.ReplayExecutor

	recordPath string
	closers    []func() error
}

// Wire builds a Harness from cfg: the command executor (real, replayed or
// recorded), the browser driver and the data-store backend.
func Wire(cfg *config.Config, w WireOptions) (*Harness, error) {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Harness{recordPath: w.RecordPath}

	var (
		exec     providers.CommandExecutor = &providers.RealExecutor{Logger: logger}
		fetch    health.Fetcher            = health.HTTP{}
		readFile                           = os.ReadFile
	)
	if w.Exec != nil {
		exec = w.Exec
	}
	if w.Health != nil {
		fetch = w.Health
	}
	if w.ScenarioPath != "" {
		if w.RecordPath != "" {
			return nil, errors.New("cannot record while replaying a scenario")
		}
		if cfg.Driver != config.DriverCLI || cfg.DB != config.DBPsql {
			return nil, fmt.Errorf("replay requires driver %q and db %q", config.DriverCLI, config.DBPsql)
		}
		s, err := replay.LoadScenario(w.ScenarioPath)
		if err != nil {
			return nil, err
		}
		h.Replay = replay.NewReplayExecutor(s)
		exec = h.Replay
		fetch = health.Static(s.Health)
		readFile = s.ReadFile
	}
	if w.RecordPath != "" {
		h.Recorder = replay.NewRecorder(exec, cfg.Workspace)
		h.Recorder.SetSecrets(cfg.DatabaseURL)
		exec = h.Recorder
		fetch = recordingFetcher{inner: fetch, rec: h.Recorder}
	}

	var driver browser.Driver
	switch cfg.Driver {
	case config.DriverCLI:
		driver = &browser.CLI{
			Exec:     exec,
			Binary:   cfg.BrowserCLI,
			Timeout:  browser.DefaultCLITimeout,
			BaseDir:  cfg.Workspace,
			ReadFile: readFile,
			Logger:   logger,
		}
	case config.DriverRod:
		driver = &browser.Rod{
			ControlURL:  cfg.ChromeURL,
			Headless:    true,
			SnapshotDir: filepath.Join(cfg.Workspace, ".clickcheck", "snapshots"),
			Logger:      logger,
		}
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}

	var store datastore.Store
	switch cfg.DB {
	case config.DBPsql:
		store = datastore.NewPsql(exec, cfg.Psql, cfg.DatabaseURL)
	case config.DBSQL:
		s, err := datastore.OpenSQL(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, s.Close)
		store = s
	default:
		return nil, fmt.Errorf("unknown db backend %q", cfg.DB)
	}

	e, err := NewEngine(cfg, Options{
		Driver:  driver,
		Store:   store,
		Health:  fetch,
		Out:     w.Out,
		Logger:  logger,
		Journal: w.Journal,
	})
	if err != nil {
		h.Close()
		return nil, err
	}
	if h.Replay != nil {
		// Recorded output does not change over time.
		e.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
		e.Budgets = Budgets{}
	}
	h.Engine = e
	return h, nil
}

// Run executes the engine and, when recording, saves the scenario.
func (h *Harness) Run(ctx context.Context) int {
	code := h.Engine.Run(ctx)
	if h.Recorder != nil && h.recordPath != "" {
		if err := h.Recorder.Scenario().Save(h.recordPath); err != nil {
			h.Engine.Logger.Error("save recording", zap.Error(err))
			h.Engine.Out.Warn("could not save recording: %v", err)
		} else {
			h.Engine.Out.Info("Recorded scenario to %s", h.recordPath)
		}
	}
	if h.Replay != nil {
		for _, c := range h.Replay.Remaining() {
			h.Engine.Logger.Debug("unused scenario entry", zap.Strings("argv", c.Argv))
		}
	}
	return code
}

// Close releases resources opened by Wire.
func (h *Harness) Close() error {
	var errs []error
	for _, c := range h.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

type recordingFetcher struct {
	inner health.Fetcher
	rec   *replay.Recorder
}

func (f recordingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.inner.Fetch(ctx, url)
	f.rec.SetHealth(body)
	return body, err
}
