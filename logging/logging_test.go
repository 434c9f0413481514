package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	w, err := NewRotatingWriter(path, 16)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte(strings.Repeat("a", 20)))
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh"))
	require.NoError(t, err)

	backup, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 20), string(backup))

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(current))
}

func TestNewRotatingWriter_RotatesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	old := strings.Repeat("x", 64)
	require.NoError(t, os.WriteFile(path, []byte(old), 0644))

	w, err := NewRotatingWriter(path, 32)
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	backup, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, old, string(backup))
}

func TestNewRotatingWriter_AppendsToSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0644))

	w, err := NewRotatingWriter(path, 1024)
	require.NoError(t, err)
	_, err = w.Write([]byte("later\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier\nlater\n", string(data))

	_, err = os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingWriter_ReportsRotationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	w, err := NewRotatingWriter(path, 8)
	require.NoError(t, err)
	defer w.Close()

	// A directory where the backup goes makes the rename fail.
	require.NoError(t, os.Mkdir(path+".1", 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path+".1", "keep"), []byte("x"), 0644))

	n, err := w.Write([]byte("0123456789"))
	assert.Equal(t, 10, n)
	require.Error(t, err)

	// The writer is still usable and kept what it had.
	_, err = w.Write([]byte("ok"))
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0123456789ok", string(data))
}

func TestSetup_DefaultsMaxSize(t *testing.T) {
	w, err := Setup(filepath.Join(t.TempDir(), "run.log"), 0)
	require.NoError(t, err)
	defer func() {
		log.SetOutput(os.Stderr)
		w.Close()
	}()
	assert.Equal(t, int64(DefaultMaxSize), w.maxSize)
}
