package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/clickcheck/pkg/assertions"
	"github.com/ormasoftchile/clickcheck/pkg/runtime"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func manifest(id, started, state string, passed, failed int) *runtime.RunManifest {
	m := &runtime.RunManifest{
		RunID:      id,
		AppURL:     "http://localhost:8080",
		StartedAt:  started,
		EndedAt:    started,
		Outcome:    &runtime.OutcomeRecord{State: state},
		Assertions: runtime.AssertionsSummary{Passed: passed, Failed: failed},
	}
	if failed > 0 || state == runtime.OutcomeAborted {
		m.ExitCode = 1
	}
	return m
}

func TestRecordAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	records := []assertions.Record{
		{Stage: "PersistedActorsCheck", Label: "players table rows", Kind: assertions.AtLeastKind, Threshold: 2, Actual: 2, Passed: true},
		{Stage: "PostInteractionVerification", Label: "min reaction_ms positive", Kind: assertions.GreaterThanKind, Threshold: 0, Actual: 0, Passed: false},
	}
	require.NoError(t, s.Record(ctx, manifest("r1", "2026-10-01T10:00:00Z", runtime.OutcomeFailed, 1, 1), records))

	aborted := manifest("r2", "2026-10-02T10:00:00Z", runtime.OutcomeAborted, 0, 0)
	aborted.Outcome.Stage = "Connectivity"
	aborted.Outcome.Message = "Cannot connect to DB"
	require.NoError(t, s.Record(ctx, aborted, nil))

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID, "newest first")
	assert.Equal(t, "Connectivity", runs[0].FailedStage)
	assert.Equal(t, 1, runs[0].ExitCode)
	assert.Equal(t, "r1", runs[1].RunID)
	assert.Equal(t, 1, runs[1].Passed)
	assert.Equal(t, 1, runs[1].Failed)

	got, err := s.Assertions(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestListLimit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		started := fmt.Sprintf("2026-10-0%dT00:00:00Z", i+1)
		require.NoError(t, s.Record(ctx, manifest(id, started, runtime.OutcomePassed, 7, 0), nil))
	}
	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}

func TestDuplicateRunRejected(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	m := manifest("dup", "2026-10-01T00:00:00Z", runtime.OutcomePassed, 1, 0)
	require.NoError(t, s.Record(ctx, m, nil))
	assert.Error(t, s.Record(ctx, m, nil))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), manifest("keep", "2026-10-01T00:00:00Z", runtime.OutcomePassed, 1, 0), nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

var _ runtime.Journal = (*Store)(nil)
