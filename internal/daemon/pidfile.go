// Package daemon provides single-instance guarding and service unit
// generation for long-running scheduler processes.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
)

// PIDFile guards against concurrent scheduler instances.
type PIDFile struct {
	path string
}

// Acquire writes the current PID to path. If a pidfile already exists and
// its process is still alive, acquisition fails; a stale file left behind
// by a dead process is removed and replaced.
func Acquire(path string) (*PIDFile, error) {
	if data, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		if perr == nil && processAlive(pid) {
			return nil, fmt.Errorf("pidfile %s exists and process %d is running", path, pid)
		}
		log.Warn().Str("path", path).Msg("Removing stale pidfile")
		if rerr := os.Remove(path); rerr != nil {
			return nil, fmt.Errorf("removing stale pidfile: %w", rerr)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating pidfile: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing pidfile: %w", err)
	}

	return &PIDFile{path: path}, nil
}

// Release removes the pidfile. Safe to call on a nil receiver.
func (p *PIDFile) Release() {
	if p == nil {
		return
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", p.path).Msg("Failed to remove pidfile")
	}
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
