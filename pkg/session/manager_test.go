package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/clickcheck/pkg/browser/browsertest"
	"github.com/ormasoftchile/clickcheck/pkg/providers"
)

func TestManagerLifecycle(t *testing.T) {
	fake := browsertest.New()
	fake.SetPage("p1", "- button \"Create Room\" [ref=e1]\n- textbox [ref=e2]\n")
	m := NewManager(fake, nil)
	ctx := context.Background()

	_, ok := m.Get("p1")
	assert.False(t, ok, "sessions are created on first use")

	require.NoError(t, m.Open(ctx, "p1", "http://localhost:8080"))
	s, ok := m.Get("p1")
	require.True(t, ok)
	assert.True(t, s.Open)

	refs, err := m.Snapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, refs.Refs())
	s, _ = m.Get("p1")
	assert.Equal(t, "mem://p1.yml", s.Artifact)

	require.NoError(t, m.Fill(ctx, "p1", "e2", "Alice"))
	require.NoError(t, m.Click(ctx, "p1", "e1"))
	require.NoError(t, m.Screenshot(ctx, "p1", "shots/p1.png"))
	require.NoError(t, m.Close(ctx, "p1"))

	s, _ = m.Get("p1")
	assert.False(t, s.Open)
	assert.Equal(t, []string{
		"p1 open http://localhost:8080",
		"p1 snapshot",
		"p1 fill e2 Alice",
		"p1 click e1",
		"p1 screenshot shots/p1.png",
		"p1 close",
	}, fake.Ops())
}

func TestSnapshotEmptyPageIsEmptyMap(t *testing.T) {
	m := NewManager(browsertest.New(), nil)
	refs, err := m.Snapshot(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, refs.Len())
}

func TestSnapshotTimeoutPropagates(t *testing.T) {
	fake := browsertest.New()
	fake.Fail["snapshot"] = providers.ErrTimeout
	m := NewManager(fake, nil)

	_, err := m.Snapshot(context.Background(), "p1")
	assert.ErrorIs(t, err, providers.ErrTimeout)
}

func TestEvaluateExtractsResultLine(t *testing.T) {
	fake := browsertest.New()
	fake.EvalResult = func(label, script string) string {
		return "### Ran Playwright code\n```js\nawait page.evaluate(" + script + ");\n```\n### Result\n2\n"
	}
	m := NewManager(fake, nil)

	got, err := m.Evaluate(context.Background(), "p2", "() => 2")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestCloseAllClosesOpenedSessionsEvenOnFailure(t *testing.T) {
	fake := browsertest.New()
	fake.Fail["open:p2"] = errors.New("boom")
	fake.Fail["close:p1"] = errors.New("already gone")
	m := NewManager(fake, nil)
	ctx := context.Background()

	require.NoError(t, m.Open(ctx, "p1", "http://x"))
	require.Error(t, m.Open(ctx, "p2", "http://x"))
	assert.Equal(t, []string{"p1", "p2"}, m.Labels())

	err := m.CloseAll(ctx)
	assert.Error(t, err)

	var closes []string
	for _, c := range fake.Calls() {
		if c.Op == "close" {
			closes = append(closes, c.Label)
		}
	}
	assert.Equal(t, []string{"p1", "p2"}, closes)
	assert.Empty(t, m.Labels())
}
