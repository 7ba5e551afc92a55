// Package supervisor starts and stops a local search server process.
//
// It is disabled unless explicitly configured. Startup waits on a readiness
// probe against the server instead of a fixed delay, and the pid file is
// acquired before launch and released on stop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esmirror/internal/domain"
)

const (
	defaultPIDFile        = "pid"
	defaultStartupTimeout = 60 * time.Second
	probeInterval         = 250 * time.Millisecond
)

// Prober checks whether the search server answers requests.
type Prober interface {
	Ping(ctx context.Context) error
}

// Config describes the server installation.
type Config struct {
	Home           string // installation directory containing bin/elasticsearch
	PIDFile        string // relative to Home unless absolute (default: "pid")
	StartupTimeout time.Duration
}

// Supervisor manages one search server installation.
type Supervisor struct {
	home    string
	binary  string
	pidFile *PIDFile
	timeout time.Duration
	prober  Prober
	logger  *zap.Logger
}

// New validates the installation at cfg.Home.
// A missing bin directory or launcher fails with domain.ErrInvalidState.
func New(cfg Config, prober Prober, logger *zap.Logger) (*Supervisor, error) {
	binDir := filepath.Join(cfg.Home, "bin")
	if info, err := os.Stat(binDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("server home %s has no bin directory: %w", cfg.Home, domain.ErrInvalidState)
	}
	binary := filepath.Join(binDir, "elasticsearch")
	if info, err := os.Stat(binary); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("server launcher %s not found: %w", binary, domain.ErrInvalidState)
	}

	pidPath := cfg.PIDFile
	if pidPath == "" {
		pidPath = defaultPIDFile
	}
	if !filepath.IsAbs(pidPath) {
		pidPath = filepath.Join(cfg.Home, pidPath)
	}
	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Supervisor{
		home:    cfg.Home,
		binary:  binary,
		pidFile: NewPIDFile(pidPath),
		timeout: timeout,
		prober:  prober,
		logger:  logger.Named("supervisor"),
	}, nil
}

// Start launches the server daemonized and blocks until the prober succeeds
// or the startup timeout expires. On timeout the server is stopped again.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.pidFile.Acquire(); err != nil {
		return fmt.Errorf("acquire pid file: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.binary, "-d", "-p", s.pidFile.Path())
	cmd.Dir = s.home
	// No pipes: the daemonized server inherits them and would keep Run blocked.
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launch %s: %w", s.binary, err)
	}
	s.logger.Info("search server launched", zap.String("home", s.home))

	if err := s.waitReady(ctx); err != nil {
		if stopErr := s.Stop(); stopErr != nil {
			s.logger.Warn("failed to stop unready server", zap.Error(stopErr))
		}
		return err
	}

	pid, _ := s.pidFile.Read()
	s.logger.Info("search server ready", zap.Int("pid", pid))
	return nil
}

func (s *Supervisor) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("search server not ready after %s: %w", s.timeout, ctx.Err())
		case <-ticker.C:
			if err := s.prober.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Stop signals the process named in the pid file with SIGTERM and releases the file.
func (s *Supervisor) Stop() error {
	pid, err := s.pidFile.Read()
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}
	s.logger.Info("search server stopped", zap.Int("pid", pid))

	return s.pidFile.Release()
}

// HealthCheck reports whether the process named in the pid file is alive.
func (s *Supervisor) HealthCheck(_ context.Context) error {
	pid, err := s.pidFile.Read()
	if err != nil {
		return fmt.Errorf("server health: %w", err)
	}
	if !processAlive(pid) {
		return fmt.Errorf("server process %d is not running", pid)
	}
	return nil
}
