package companion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BootstrapConfig controls how a missing registry is started.
type BootstrapConfig struct {
	// Addr is the well-known registry address
	Addr string
	// Executable is the weave binary to spawn; defaults to os.Executable
	Executable string
	// Args are passed to the spawned process after "companion serve"
	Args []string
	// StartTimeout bounds the wait for a freshly spawned registry
	StartTimeout time.Duration
	// PingTimeout bounds each liveness probe
	PingTimeout time.Duration
	// StaleLock is the age after which a leftover lock file is ignored
	StaleLock time.Duration
	// LockDir holds the lock file; defaults to os.TempDir
	LockDir string
	// Logger receives progress messages
	Logger *zap.Logger
}

// DefaultBootstrapConfig returns the configuration used by weave gen
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Addr:         DefaultAddr,
		StartTimeout: 5 * time.Second,
		PingTimeout:  200 * time.Millisecond,
		StaleLock:    30 * time.Second,
	}
}

// Bootstrap returns a client for a live registry, starting one when
// nothing answers at cfg.Addr. A lock file ensures only one caller spawns
// the process; the others wait for it to answer.
func Bootstrap(ctx context.Context, cfg BootstrapConfig) (*Client, error) {
	def := DefaultBootstrapConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = def.StartTimeout
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.StaleLock <= 0 {
		cfg.StaleLock = def.StaleLock
	}
	if cfg.LockDir == "" {
		cfg.LockDir = os.TempDir()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := NewClient(cfg.Addr)
	if err := ping(ctx, client, cfg.PingTimeout); err == nil {
		return client, nil
	}

	lock := LockPath(cfg.LockDir, cfg.Addr)
	owned, err := acquireLock(lock, cfg.StaleLock)
	if err != nil {
		return nil, err
	}
	if owned {
		defer os.Remove(lock)
		logger.Info("starting registry", zap.String("addr", cfg.Addr))
		if err := spawn(cfg); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("registry is being started by another process", zap.String("lock", lock))
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := ping(waitCtx, client, cfg.PingTimeout); err == nil {
			return client, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w at %s: not started within %s", ErrUnavailable, cfg.Addr, cfg.StartTimeout)
		case <-ticker.C:
		}
	}
}

// LockPath returns the lock file guarding registry startup for addr
func LockPath(dir, addr string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "[", "", "]", "").Replace(addr)
	return filepath.Join(dir, "weave-companion-"+name+".lock")
}

func ping(ctx context.Context, client *Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx)
}

// writeOwner records the current process in a new lock file.
var writeOwner = func(f *os.File) error {
	_, err := f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// acquireLock creates the lock at path. It reports false when another
// process holds a lock younger than stale.
func acquireLock(path string, stale time.Duration) (bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if err := errors.Join(writeOwner(f), f.Close()); err != nil {
				os.Remove(path)
				return false, fmt.Errorf("write lock %s: %w", path, err)
			}
			return true, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return false, fmt.Errorf("create lock %s: %w", path, err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) < stale {
			return false, nil
		}
		// leftover from a crashed bootstrap
		os.Remove(path)
	}
	return false, nil
}

func spawn(cfg BootstrapConfig) error {
	exe := cfg.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return fmt.Errorf("locate weave executable: %w", err)
		}
	}

	args := append([]string{"companion", "serve", "--addr", cfg.Addr}, cfg.Args...)
	cmd := exec.Command(exe, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start registry: %w", err)
	}
	return cmd.Process.Release()
}
