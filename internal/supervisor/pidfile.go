package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// errNoPIDFile is returned by Read when the pid file does not exist.
var errNoPIDFile = errors.New("pid file not found")

// PIDFile is the file the search server writes its process id to.
type PIDFile struct {
	path string
}

// NewPIDFile creates a handle for path. Nothing is touched on disk.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: filepath.Clean(path)}
}

// Path returns the location of the pid file.
func (p *PIDFile) Path() string { return p.path }

// Read parses the pid stored in the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, errNoPIDFile
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s holds %q: invalid pid", p.path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// Acquire claims the pid file for a new server. A leftover file naming a dead
// process is removed; one naming a live process is an error.
func (p *PIDFile) Acquire() error {
	pid, err := p.Read()
	switch {
	case errors.Is(err, errNoPIDFile):
		return nil
	case err != nil:
		return p.Release()
	case processAlive(pid):
		return fmt.Errorf("server already running with pid %d", pid)
	default:
		return p.Release()
	}
}

// Release removes the pid file. A missing file is not an error.
func (p *PIDFile) Release() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// processAlive reports whether pid names a running process we may signal.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
