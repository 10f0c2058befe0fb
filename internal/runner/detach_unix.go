//go:build !windows

package runner

import "syscall"

// detachedAttrs puts the command in a new session so it survives the
// watcher's terminal and process group.
func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
