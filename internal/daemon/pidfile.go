// Package daemon tracks the background API server process through a PID file.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNotRunning is returned when no live server owns the PID file.
var ErrNotRunning = errors.New("server is not running")

// PIDFile manages the PID file written by `tracker serve`.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Acquire records the current process as the server. It fails when another
// live process already owns the file; a stale file is overwritten.
func (p *PIDFile) Acquire() error {
	if pid, running := p.IsRunning(); running && pid != os.Getpid() {
		return fmt.Errorf("server already running (pid %d)", pid)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return p.WritePID(os.Getpid())
}

// WritePID writes the given PID to the file.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file content: %q", strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// Release removes the PID file. A missing file is not an error.
func (p *PIDFile) Release() error {
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Stop asks the server to shut down and waits up to timeout for it to exit.
// The PID file is removed once the process is gone.
func (p *PIDFile) Stop(timeout time.Duration) (int, error) {
	pid, running := p.IsRunning()
	if !running {
		_ = p.Release()
		return 0, ErrNotRunning
	}
	if err := p.terminate(pid); err != nil {
		return pid, fmt.Errorf("signal pid %d: %w", pid, err)
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			return pid, p.Release()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return pid, fmt.Errorf("server (pid %d) did not exit within %s", pid, timeout)
}

// IsRunning reports the recorded PID and whether that process is alive.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	return pid, alive(pid)
}
