//go:build !windows

package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid so that
// the browser's renderer and GPU helpers exit with it. Non-positive PIDs are
// ignored: -0 would target the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
