package iohelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInputDashIsStdin(t *testing.T) {
	r, err := OpenInput("-")
	require.NoError(t, err)
	assert.Equal(t, os.Stdin, r)
}

func TestOpenInputEmptyIsStdin(t *testing.T) {
	r, err := OpenInput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdin, r)
}

func TestOpenInputOpensRealFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	r, err := OpenInput(path)
	require.NoError(t, err)
	defer r.Close()
}

func TestOpenInputMissingFileErrors(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "missing.ndjson"))
	assert.Error(t, err)
}

func TestOpenOutputDashIsStdout(t *testing.T) {
	w, err := OpenOutput("-")
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestOpenOutputCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ndjson")

	w, err := OpenOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
