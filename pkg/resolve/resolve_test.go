package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

func TestFindScenario(t *testing.T) {
	refs := snapshot.Parse("- button \"Create Room\" [ref=e1]\n- textbox [ref=e2]\n")

	ref, ok := Find(refs, "Create Room")
	require.True(t, ok)
	assert.Equal(t, "e1", ref)

	ref, ok = Find(refs, "textbox")
	require.True(t, ok)
	assert.Equal(t, "e2", ref)
}

func TestFindRequiresEveryKeyword(t *testing.T) {
	refs := snapshot.Parse(`- textbox "Your name" [ref=e1]
- textbox "ROOM code" [ref=e2]
- button "Join Room" [ref=e3]`)

	ref, ok := Find(refs, "textbox", "room")
	require.True(t, ok)
	assert.Equal(t, "e2", ref)

	_, ok = Find(refs, "textbox", "join")
	assert.False(t, ok)
}

func TestFindCaseInsensitiveFirstMatch(t *testing.T) {
	refs := snapshot.Parse("- button \"READY\" [ref=e4]\n- button \"ready up\" [ref=e5]\n")
	ref, ok := Find(refs, "Ready")
	require.True(t, ok)
	assert.Equal(t, "e4", ref)
}

func TestFindEmptyMap(t *testing.T) {
	_, ok := Find(snapshot.Parse(""), "button")
	assert.False(t, ok)
}

func TestChainFallsBackInOrder(t *testing.T) {
	refs := snapshot.Parse(`- button "Create Room" [ref=e1]
- textbox "Name" [ref=e2]
- button "Let's play" [ref=e3]`)

	chain := Chain{
		Keywords("button", "Join"),
		Keywords("button", "Enter"),
		ButtonExcept("create"),
	}
	ref, by, ok := chain.Resolve(refs)
	require.True(t, ok)
	assert.Equal(t, "e3", ref)
	assert.Equal(t, "button-except(create)", by)
}

func TestChainPrefersEarlierMatcher(t *testing.T) {
	refs := snapshot.Parse(`- button "Go" [ref=e1]
- button "Join" [ref=e2]`)

	chain := Chain{Keywords("button", "Join"), Keywords("button", "Go")}
	ref, by, ok := chain.Resolve(refs)
	require.True(t, ok)
	assert.Equal(t, "e2", ref)
	assert.Equal(t, "keywords(button, Join)", by)
}

func TestChainNoMatch(t *testing.T) {
	refs := snapshot.Parse(`- button "Create Room" [ref=e1]`)
	_, _, ok := Chain{ButtonExcept("create")}.Resolve(refs)
	assert.False(t, ok)
	assert.Equal(t, []string{"button-except(create)"}, Chain{ButtonExcept("create")}.Names())
}

func TestExprMatcher(t *testing.T) {
	m, err := Expr(`desc contains "button" && !(desc contains "create")`)
	require.NoError(t, err)

	assert.True(t, m.Match(`- button "Join" [ref=e2]`))
	assert.False(t, m.Match(`- button "Create Room" [ref=e1]`))
	assert.False(t, m.Match(`- textbox [ref=e3]`))
}

func TestExprMatcherRawIsCaseSensitive(t *testing.T) {
	m, err := Expr(`raw contains "ROOM"`)
	require.NoError(t, err)
	assert.True(t, m.Match(`- textbox "ROOM" [ref=e1]`))
	assert.False(t, m.Match(`- textbox "room" [ref=e1]`))
}

func TestExprCompileErrors(t *testing.T) {
	_, err := Expr("")
	assert.Error(t, err)

	_, err = Expr(`desc +`)
	assert.Error(t, err)

	_, err = Expr(`len(desc)`)
	assert.Error(t, err, "non-bool expressions are rejected")
}

func TestCompileChain(t *testing.T) {
	chain, err := CompileChain([]string{`desc contains "join"`, `desc contains "button"`})
	require.NoError(t, err)
	require.Len(t, chain, 2)

	refs := snapshot.Parse("- button \"Go\" [ref=e1]\n")
	ref, by, ok := chain.Resolve(refs)
	require.True(t, ok)
	assert.Equal(t, "e1", ref)
	assert.Equal(t, `expr(desc contains "button")`, by)

	_, err = CompileChain([]string{`desc contains`})
	assert.Error(t, err)
}
