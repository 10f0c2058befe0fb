//go:build windows

package runner

import "syscall"

// detachedAttrs starts the command in its own process group so console
// interrupts sent to the watcher do not reach it.
func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
