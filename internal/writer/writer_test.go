package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0o600))

	require.NoError(t, File{Path: path}.WritePayload([]byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestFileMissingDir(t *testing.T) {
	err := File{Path: filepath.Join(t.TempDir(), "no", "such", "out.bin")}.WritePayload([]byte("x"))
	require.Error(t, err)
}

func TestStreamAndMemory(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, Stream{W: &b}.WritePayload([]byte("abc")))
	assert.Equal(t, "abc", b.String())

	src := []byte("payload")
	m := &Memory{}
	require.NoError(t, m.WritePayload(src))
	src[0] = 'X'
	assert.Equal(t, "payload", string(m.Buf))
}

func TestFor(t *testing.T) {
	assert.IsType(t, Stream{}, For("-"))
	assert.Equal(t, File{Path: "a.bin"}, For("a.bin"))
}
