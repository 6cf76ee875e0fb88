package tools

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMechanism(t *testing.T) {
	oldLocation := indexLocation
	indexLocation = filepath.Join(t.TempDir(), "search", "index")
	defer func() { indexLocation = oldLocation }()

	path := lockPath()

	readPID := func(t *testing.T) int {
		t.Helper()
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		pid, err := strconv.Atoi(string(data))
		require.NoError(t, err)
		return pid
	}

	t.Run("acquire creates lock directory", func(t *testing.T) {
		require.NoError(t, acquireLock())
		assert.Equal(t, os.Getpid(), readPID(t))

		require.NoError(t, releaseLock())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "lock file should be removed after release")
	})

	t.Run("detect stale lock", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("99999"), 0644))

		require.NoError(t, acquireLock())
		assert.Equal(t, os.Getpid(), readPID(t))
		require.NoError(t, releaseLock())
	})

	t.Run("corrupted lock", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

		require.NoError(t, acquireLock())
		assert.Equal(t, os.Getpid(), readPID(t))
		require.NoError(t, releaseLock())
	})

	t.Run("reacquire same lock", func(t *testing.T) {
		require.NoError(t, acquireLock())
		require.NoError(t, acquireLock())
		require.NoError(t, releaseLock())
	})

	t.Run("release leaves foreign lock", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("1"), 0644))

		require.NoError(t, releaseLock())
		_, err := os.Stat(path)
		assert.NoError(t, err, "lock owned by another process must stay")
		require.NoError(t, os.Remove(path))
	})

	t.Run("release without lock", func(t *testing.T) {
		assert.NoError(t, releaseLock())
	})

	t.Run("is process running", func(t *testing.T) {
		assert.True(t, isProcessRunning(os.Getpid()))
		assert.False(t, isProcessRunning(99999))
	})
}
