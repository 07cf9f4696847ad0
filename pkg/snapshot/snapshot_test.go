package snapshot

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lobbySnapshot = `- generic [ref=e0]:
  - heading "ClickTrainer" [level=1]
  - button "Create Room" [ref=e1]
  - textbox [ref=e2]
  - button "Join Room" [ref=e3]
  - paragraph: Train your reactions
`

func TestParseKeepsOnlyMarkedLines(t *testing.T) {
	refs := Parse(lobbySnapshot)

	require.Equal(t, 4, refs.Len())
	assert.Equal(t, []string{"e0", "e1", "e2", "e3"}, refs.Refs())

	desc, ok := refs.Get("e1")
	require.True(t, ok)
	assert.Equal(t, `- button "Create Room" [ref=e1]`, desc)

	_, ok = refs.Get("e9")
	assert.False(t, ok)
}

func TestParseDuplicateRefFirstWins(t *testing.T) {
	refs := Parse("- button \"A\" [ref=e1]\n- button \"B\" [ref=e1]\n- textbox [ref=e2]\n")

	assert.Equal(t, []string{"e1", "e2"}, refs.Refs())
	desc, _ := refs.Get("e1")
	assert.Equal(t, `- button "A" [ref=e1]`, desc)
}

func TestParseEmptyAndGarbage(t *testing.T) {
	assert.Equal(t, 0, Parse("").Len())
	assert.Equal(t, 0, Parse("no markers here\n[ref=]\n[ref = e1]").Len())
}

func TestParseOrderFollowsFirstOccurrence(t *testing.T) {
	refs := Parse("x [ref=e5]\ny [ref=e2]\nz [ref=e5]\nw [ref=e9]")
	assert.Equal(t, []string{"e5", "e2", "e9"}, refs.Refs())
}

func TestEntriesIsACopy(t *testing.T) {
	refs := Parse(lobbySnapshot)
	entries := refs.Entries()
	entries[0].Desc = "mutated"

	desc, _ := refs.Get("e0")
	assert.NotEqual(t, "mutated", desc)
}

func TestArtifactPath(t *testing.T) {
	out := "### Page state\n- Page URL: http://localhost:8080/\n- [Snapshot](.playwright-cli/page-2026-10-18T10-00-00.yml)\n"
	path, ok := ArtifactPath(out)
	require.True(t, ok)
	assert.Equal(t, ".playwright-cli/page-2026-10-18T10-00-00.yml", path)

	_, ok = ArtifactPath("Error: browser not open")
	assert.False(t, ok)
}

func TestDumpTruncates(t *testing.T) {
	refs := Parse(`- button "Create Room" [ref=e1]`)
	assert.Equal(t, "  e1: - button \"Create ...\n", Dump(refs, 20))
	assert.Equal(t, "  (no refs)\n", Dump(Parse(""), 20))
}

func TestDumpGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "lobby_dump", []byte(Dump(Parse(lobbySnapshot), 0)))
}
