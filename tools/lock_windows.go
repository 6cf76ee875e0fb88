//go:build windows

package tools

import "syscall"

// isProcessRunning opens a query handle on pid; FindProcess alone succeeds for dead PIDs on Windows
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	const access = syscall.STANDARD_RIGHTS_READ | syscall.PROCESS_QUERY_INFORMATION | syscall.SYNCHRONIZE

	h, err := syscall.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return false
	}
	defer syscall.CloseHandle(h)

	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return false
	}

	const stillActive = 259
	return code == stillActive
}
