package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomCodeSkipsChromeAndRefs(t *testing.T) {
	text := `- heading "CLICK TRAINER" [ref=e1]
- text: ROOM CODE
- heading "K7QP" [ref=e12]
- button "Ready" [ref=e13]`

	code, ok := RoomCode(text)
	assert.True(t, ok)
	assert.Equal(t, "K7QP", code)
}

func TestRoomCodeIgnoresRefMarkers(t *testing.T) {
	code, ok := RoomCode(`- button "Join" [ref=E123] [ref=ABCD]
- text: HTTP K7QP`)
	assert.True(t, ok)
	assert.Equal(t, "K7QP", code)
}

func TestRoomCodeMayStartWithREF(t *testing.T) {
	// R, E and F are all in the server's alphabet.
	code, ok := RoomCode("- heading \"REF2\" [ref=e12]")
	assert.True(t, ok)
	assert.Equal(t, "REF2", code)
	assert.True(t, ValidCode(code))
}

func TestRoomCodeRequiresWordBoundary(t *testing.T) {
	_, ok := RoomCode("TRAINER CLICKS ROOMS")
	assert.False(t, ok)
}

func TestRoomCodeNone(t *testing.T) {
	_, ok := RoomCode(`- button "Create Room" [ref=e1]`)
	assert.False(t, ok)
}

func TestRoomCodeFirstSurvivorWins(t *testing.T) {
	code, ok := RoomCode("CODE: 9XYZ then WXYZ")
	assert.True(t, ok)
	assert.Equal(t, "9XYZ", code)
}

func TestRoomCodeFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/room/K7QP", "K7QP", true},
		{"  /room/K7QP/\n", "K7QP", true},
		{`"/room/AB23"`, "AB23", true},
		{"/room/AB23?x=1", "AB23", true},
		{"/room/AB10", "", false}, // 1 and 0 are not in the alphabet
		{"/room/ABCDE", "", false},
		{"/", "", false},
		{"undefined", "", false},
	}
	for _, tt := range tests {
		got, ok := RoomCodeFromPath(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("ZZ99"))
	assert.False(t, ValidCode("zz99"))
	assert.False(t, ValidCode("IO01"))
}
