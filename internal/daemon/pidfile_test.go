package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteAndRead(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "tracker.pid"))

	require.NoError(t, pf.WritePID(12345))

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)
}

func TestPIDFile_Read_MissingFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid"))

	_, err := pf.Read()
	assert.True(t, os.IsNotExist(err))
}

func TestPIDFile_Read_InvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o644))

	_, err := NewPIDFile(path).Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID file content")

	require.NoError(t, os.WriteFile(path, []byte("-4\n"), 0o644))
	_, err = NewPIDFile(path).Read()
	assert.Error(t, err)
}

func TestPIDFile_Acquire_CreatesDir(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "state", "tracker.pid"))

	require.NoError(t, pf.Acquire())

	pid, running := pf.IsRunning()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_Acquire_StaleFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "tracker.pid"))
	require.NoError(t, pf.WritePID(999999))

	require.NoError(t, pf.Acquire())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_Release(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "tracker.pid"))
	require.NoError(t, pf.WritePID(1))

	require.NoError(t, pf.Release())
	_, err := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(err))

	// Releasing twice is fine.
	assert.NoError(t, pf.Release())
}

func TestPIDFile_IsRunning_DeadProcess(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "tracker.pid"))
	require.NoError(t, pf.WritePID(999999))

	pid, running := pf.IsRunning()
	assert.Equal(t, 999999, pid)
	assert.False(t, running)
}

func TestPIDFile_IsRunning_NoFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid"))

	pid, running := pf.IsRunning()
	assert.Equal(t, 0, pid)
	assert.False(t, running)
}

func TestPIDFile_Stop_NotRunning(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "tracker.pid"))
	require.NoError(t, pf.WritePID(999999))

	_, err := pf.Stop(0)
	assert.ErrorIs(t, err, ErrNotRunning)

	_, statErr := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(statErr), "stale pid file is cleaned up")
}
