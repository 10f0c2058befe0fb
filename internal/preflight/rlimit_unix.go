//go:build !windows

package preflight

import "golang.org/x/sys/unix"

// descriptorLimit returns the soft RLIMIT_NOFILE.
func descriptorLimit() (uint64, error) {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}
	return uint64(rLimit.Cur), nil
}
