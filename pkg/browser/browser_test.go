package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/clickcheck/pkg/providers"
	"github.com/ormasoftchile/clickcheck/pkg/replay"
)

func TestResultLine(t *testing.T) {
	out := "### Ran Playwright code\n```js\nawait page.evaluate('() => 2');\n```\n\n### Result\n2\n"
	assert.Equal(t, "2", ResultLine(out))
}

func TestResultLineFallsBackToRaw(t *testing.T) {
	assert.Equal(t, "# only a heading", ResultLine("  # only a heading \n\n"))
	assert.Equal(t, "", ResultLine(""))
}

func TestResultLineFirstMeaningfulLine(t *testing.T) {
	assert.Equal(t, `"ok"`, ResultLine("\n  \"ok\"\nsecond\n"))
}

func cliWith(t *testing.T, commands []replay.ScenarioCommand, files map[string]string) *CLI {
	t.Helper()
	s := &replay.Scenario{Commands: commands, Files: files}
	return &CLI{
		Exec:     replay.NewReplayExecutor(s),
		BaseDir:  "/workspace",
		ReadFile: s.ReadFile,
	}
}

func TestCLISnapshotReadsArtifact(t *testing.T) {
	c := cliWith(t,
		[]replay.ScenarioCommand{{
			Argv:   []string{"playwright-cli", "-s=p1", "snapshot"},
			Stdout: "### Page\n- [Snapshot](.playwright-cli/page-1.yml)\n",
		}},
		map[string]string{"/workspace/.playwright-cli/page-1.yml": "- button \"Create Room\" [ref=e1]\n"},
	)

	text, path, err := c.Snapshot(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "/workspace/.playwright-cli/page-1.yml", path)
	assert.Equal(t, "- button \"Create Room\" [ref=e1]\n", text)
}

func TestCLISnapshotWithoutLinkIsEmpty(t *testing.T) {
	c := cliWith(t,
		[]replay.ScenarioCommand{{
			Argv:   []string{"playwright-cli", "-s=p1", "snapshot"},
			Stdout: "Error: session p1 not found\n",
		}}, nil)

	text, path, err := c.Snapshot(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, path)
}

func TestCLISnapshotMissingArtifactIsEmpty(t *testing.T) {
	c := cliWith(t,
		[]replay.ScenarioCommand{{
			Argv:   []string{"playwright-cli", "-s=p2", "snapshot"},
			Stdout: "- [Snapshot](.playwright-cli/gone.yml)\n",
		}}, nil)

	text, path, err := c.Snapshot(context.Background(), "p2")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, "/workspace/.playwright-cli/gone.yml", path)
}

func TestCLIPrimitivesArgv(t *testing.T) {
	c := cliWith(t, []replay.ScenarioCommand{
		{Argv: []string{"playwright-cli", "-s=p1", "open", "http://localhost:8080"}},
		{Argv: []string{"playwright-cli", "-s=p1", "fill", "e2", "Alice"}},
		{Argv: []string{"playwright-cli", "-s=p1", "click", "e3"}},
		{Argv: []string{"playwright-cli", "-s=p1", "eval", "() => 1"}, Stdout: "### Result\n1\n"},
		{Argv: []string{"playwright-cli", "-s=p1", "screenshot", "--filename=shots/p1.png"}},
		{Argv: []string{"playwright-cli", "-s=p1", "close"}},
	}, nil)
	ctx := context.Background()

	require.NoError(t, c.Open(ctx, "p1", "http://localhost:8080"))
	require.NoError(t, c.Fill(ctx, "p1", "e2", "Alice"))
	require.NoError(t, c.Click(ctx, "p1", "e3"))
	out, err := c.Eval(ctx, "p1", "() => 1")
	require.NoError(t, err)
	assert.Equal(t, "1", ResultLine(out))
	require.NoError(t, c.Screenshot(ctx, "p1", "shots/p1.png"))
	require.NoError(t, c.Close(ctx, "p1"))

	exec := c.Exec.(*replay.ReplayExecutor)
	assert.Empty(t, exec.Remaining())
}

func TestCLIUnmatchedCommandIsOutputNotError(t *testing.T) {
	c := cliWith(t, []replay.ScenarioCommand{{Argv: []string{"playwright-cli", "-s=p1", "close"}}}, nil)
	// The replay executor fails closed; Run reports that as output.
	require.NoError(t, c.Click(context.Background(), "p1", "e1"))
}

func TestCLIReadsRealFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snap.yml"), []byte("- textbox [ref=e2]\n"), 0644))
	s := &replay.Scenario{Commands: []replay.ScenarioCommand{{
		Argv:   []string{"pw", "-s=p1", "snapshot"},
		Stdout: "- [Snapshot](snap.yml)\n",
	}}}
	c := &CLI{Exec: replay.NewReplayExecutor(s), Binary: "pw", BaseDir: dir}

	text, _, err := c.Snapshot(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "- textbox [ref=e2]\n", text)
}

type timeoutExecutor struct{}

func (timeoutExecutor) Execute(ctx context.Context, command string, args []string, env []string) (*providers.CommandResult, error) {
	<-ctx.Done()
	return &providers.CommandResult{ExitCode: -1}, nil
}

func TestCLITimeoutIsError(t *testing.T) {
	c := &CLI{Exec: timeoutExecutor{}, Timeout: 1}
	err := c.Open(context.Background(), "p1", "http://x")
	assert.True(t, errors.Is(err, providers.ErrTimeout))
}
