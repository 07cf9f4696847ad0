package evidence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	a, err := Attach("p1", path)
	require.NoError(t, err)
	assert.Equal(t, "p1", a.Label)
	assert.Equal(t, int64(3), a.Size)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", a.SHA256)
}

func TestAttachMissing(t *testing.T) {
	_, err := Attach("p1", filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}
