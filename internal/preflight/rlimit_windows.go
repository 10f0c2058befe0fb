//go:build windows

package preflight

import "math"

// descriptorLimit reports no limit: Windows handles are not capped by an
// rlimit, and ReadDirectoryChangesW watches directories, not files.
func descriptorLimit() (uint64, error) {
	return math.MaxUint64, nil
}
