package companion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapUsesRunningRegistry(t *testing.T) {
	running, _ := startServer(t, NewMemoryStore())

	client, err := Bootstrap(context.Background(), BootstrapConfig{
		Addr:       running.Addr(),
		Executable: "/nonexistent/weave",
		LockDir:    t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, running.Addr(), client.Addr())
}

func TestBootstrapSpawnFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := Bootstrap(context.Background(), BootstrapConfig{
		Addr:        "127.0.0.1:1",
		Executable:  filepath.Join(dir, "missing-weave"),
		LockDir:     dir,
		PingTimeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start registry")

	_, statErr := os.Stat(LockPath(dir, "127.0.0.1:1"))
	assert.True(t, os.IsNotExist(statErr), "lock is released")
}

func TestLockPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp", "weave-companion-127.0.0.1_47777.lock"), LockPath("/tmp", DefaultAddr))
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	owned, err := acquireLock(path, time.Minute)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = acquireLock(path, time.Minute)
	require.NoError(t, err)
	assert.False(t, owned, "second caller waits")

	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	owned, err = acquireLock(path, time.Minute)
	require.NoError(t, err)
	assert.True(t, owned, "stale lock is taken over")
}

func TestAcquireLockWriteFailure(t *testing.T) {
	orig := writeOwner
	t.Cleanup(func() { writeOwner = orig })
	writeOwner = func(*os.File) error { return errors.New("disk full") }

	dir := t.TempDir()
	_, err := Bootstrap(context.Background(), BootstrapConfig{
		Addr:        "127.0.0.1:1",
		Executable:  filepath.Join(dir, "missing-weave"),
		LockDir:     dir,
		PingTimeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, statErr := os.Stat(LockPath(dir, "127.0.0.1:1"))
	assert.True(t, os.IsNotExist(statErr), "lock is released")
}
