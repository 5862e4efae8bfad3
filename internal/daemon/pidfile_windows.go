//go:build windows

package daemon

import (
	"os"
	"syscall"
)

// alive reports whether the process can be found and signalled.
// FindProcess always succeeds on Windows, so the signal does the real check.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// terminate kills the process; Windows has no SIGTERM delivery.
func (p *PIDFile) terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
