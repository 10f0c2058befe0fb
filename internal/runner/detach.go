package runner

import (
	"fmt"
	"os"
	"os/exec"
)

// EnvDetachHelper marks a process started by the runner as the detach helper.
const EnvDetachHelper = "KWATCH_DETACH_HELPER"

// helperSpawnFailed is the helper's exit status when the command could not
// be started. Matches the shell convention for "command not found".
const helperSpawnFailed = 127

// MaybeRunDetachHelper turns the current process into the detach helper when
// it was started as one, and never returns in that case. It must run before
// any flag parsing, at the very top of main (or TestMain).
func MaybeRunDetachHelper() {
	if os.Getenv(EnvDetachHelper) != "1" {
		return
	}
	os.Exit(runDetachHelper(os.Args[1:]))
}

// runDetachHelper starts argv in its own session, releases it and returns
// the helper's exit status.
func runDetachHelper(argv []string) int {
	_ = os.Unsetenv(EnvDetachHelper)

	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "kwatch: detach helper started without a command")
		return helperSpawnFailed
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = detachedAttrs()

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "kwatch: %v\n", err)
		return helperSpawnFailed
	}
	_ = cmd.Process.Release()
	return 0
}
