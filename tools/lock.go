package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	lockTimeout   = 5 * time.Second // Max time to wait for lock
	lockRetryWait = 500 * time.Millisecond
)

// indexLocation is the chunk index directory; its lock file sits next to it
var indexLocation = filepath.Join(".", "data", "search", "index")

func lockPath() string {
	return indexLocation + ".lock"
}

// isProcessRunning is implemented in platform-specific files:
// - lock_unix.go for Unix/Linux/macOS
// - lock_windows.go for Windows

// cleanStaleLock removes lock file if the owning process is dead
func cleanStaleLock() error {
	path := lockPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No lock file, nothing to clean
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		logger.Warn("Corrupted lock file (invalid PID), removing")
		return os.Remove(path)
	}

	if isProcessRunning(pid) {
		return fmt.Errorf("lock held by running process %d", pid)
	}

	logger.Info("Stale lock detected, cleaning", zap.Int("pid", pid))
	return os.Remove(path)
}

// acquireLock attempts to acquire the index lock with retry
func acquireLock() error {
	path := lockPath()
	ourPID := os.Getpid()

	// Check if we already have the lock
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == ourPID {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	startTime := time.Now()

	for {
		if err := cleanStaleLock(); err != nil {
			// Lock is held by active process
			elapsed := time.Since(startTime)
			if elapsed >= lockTimeout {
				return fmt.Errorf("timeout waiting for index lock after %v: %w", elapsed, err)
			}

			logger.Info("Index locked by another process, waiting",
				zap.Duration("elapsed", elapsed.Round(100*time.Millisecond)))
			time.Sleep(lockRetryWait)
			continue
		}

		if err := os.WriteFile(path, []byte(strconv.Itoa(ourPID)), 0644); err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		logger.Info("✓ Index lock acquired", zap.Int("pid", ourPID))
		return nil
	}
}

// releaseLock releases the index lock
func releaseLock() error {
	path := lockPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Lock already removed
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	// Verify we own the lock before removing
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid != os.Getpid() {
		logger.Warn("Lock file belongs to another process, not removing",
			zap.Int("lock_pid", pid), zap.Int("pid", os.Getpid()))
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	logger.Info("✓ Index lock released")
	return nil
}
