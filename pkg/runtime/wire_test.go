package runtime

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/health"
	"github.com/ormasoftchile/clickcheck/pkg/replay"
	"github.com/ormasoftchile/clickcheck/pkg/report"
)

func wireReplay(t *testing.T, cfg *config.Config, w WireOptions) (*Harness, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	w.Out = report.New(&out, false)
	h, err := Wire(cfg, w)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	h.Engine.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	h.Engine.Budgets = Budgets{}
	return h, &out
}

// TestReplayFullGame drives the CLI driver and the psql store through a
// recorded scenario, end to end.
func TestReplayFullGame(t *testing.T) {
	h, out := wireReplay(t, testConfig(t), WireOptions{ScenarioPath: "testdata/full-game.yaml"})

	code := h.Run(context.Background())

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "Room code: K7QP")
	assert.Contains(t, out.String(), "PASS: min reaction_ms positive (got 154 > 0)")
	assert.Contains(t, out.String(), "=== Results: 7 passed, 0 failed ===")
	assert.Empty(t, h.Replay.Remaining(), "every recorded command was replayed")
}

func TestRecordThenReplay(t *testing.T) {
	src, err := replay.LoadScenario("testdata/full-game.yaml")
	require.NoError(t, err)

	// Materialize the snapshot artifacts in a real workspace.
	ws := t.TempDir()
	for path, content := range src.Files {
		dst := filepath.Join(ws, ".playwright-cli", filepath.Base(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0755))
		require.NoError(t, os.WriteFile(dst, []byte(content), 0644))
	}
	cfg := testConfig(t)
	cfg.Workspace = ws
	recordPath := filepath.Join(t.TempDir(), "recorded.yaml")

	h, out := wireReplay(t, cfg, WireOptions{
		RecordPath: recordPath,
		Exec:       replay.NewReplayExecutor(src),
		Health:     health.Static(`{"status":"ok"}`),
	})
	require.Equal(t, 0, h.Run(context.Background()), out.String())
	assert.Contains(t, out.String(), "Recorded scenario to "+recordPath)

	got, err := replay.LoadScenario(recordPath)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, got.Health)
	assert.Equal(t, []string{"psql", "*", "-tAc", "SELECT 1"}, got.Commands[0].Argv, "connection string is not stored")
	assert.Contains(t, got.Files, filepath.Join(ws, ".playwright-cli", "home.yml"))

	// The recording replays on its own.
	h2, out2 := wireReplay(t, cfg, WireOptions{ScenarioPath: recordPath})
	assert.Equal(t, 0, h2.Run(context.Background()), out2.String())
	assert.Empty(t, h2.Replay.Remaining())
}

func TestWireRejectsReplayWithRod(t *testing.T) {
	cfg := testConfig(t)
	cfg.Driver = config.DriverRod
	_, err := Wire(cfg, WireOptions{ScenarioPath: "testdata/full-game.yaml"})
	assert.Error(t, err)
}

func TestWireRejectsRecordDuringReplay(t *testing.T) {
	_, err := Wire(testConfig(t), WireOptions{ScenarioPath: "testdata/full-game.yaml", RecordPath: "x.yaml"})
	assert.Error(t, err)
}

func TestWireUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Driver = "firefox"
	_, err := Wire(cfg, WireOptions{})
	assert.Error(t, err)
}
