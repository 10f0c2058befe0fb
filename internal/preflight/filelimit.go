package preflight

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DescriptorReserve is the number of descriptors kept free for stdio, the
// log file and the reaction commands kwatch spawns.
const DescriptorReserve = 64

// inotifyWatchesPath exposes the per-user inotify watch limit on Linux.
const inotifyWatchesPath = "/proc/sys/fs/inotify/max_user_watches"

// descriptorsPerTarget is how many descriptors one registered file costs.
// kqueue needs an open descriptor per file; inotify shares one descriptor
// for every watch; polling opens nothing between scans.
func (c *Checker) descriptorsPerTarget() int {
	if c.backend != "fsnotify" {
		return 0
	}
	switch c.goos {
	case "darwin", "freebsd", "openbsd", "netbsd", "dragonfly":
		return 1
	default:
		return 0
	}
}

// CheckFileDescriptors checks that the soft RLIMIT_NOFILE leaves room for
// every watch target.
func (c *Checker) CheckFileDescriptors(targets int) CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	limit, err := c.descriptorLimit()
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	need := uint64(DescriptorReserve + c.descriptorsPerTarget()*targets)
	result.Message = fmt.Sprintf("%d (need about %d)", limit, need)
	if limit < need {
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("Run 'ulimit -n %d' to watch every file", roundUp(need))
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckInotifyWatches checks the Linux inotify watch limit against the
// watch list size.
func (c *Checker) CheckInotifyWatches(targets int) CheckResult {
	result := CheckResult{Name: "inotify_watches"}

	limit, err := c.inotifyLimit()
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to read inotify limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (need %d)", limit, targets)
	if limit < targets {
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("Run 'sysctl fs.inotify.max_user_watches=%d' or use --backend poll", roundUp(uint64(targets)))
		return result
	}
	result.Status = StatusPass
	return result
}

func readInotifyLimit() (int, error) {
	data, err := os.ReadFile(inotifyWatchesPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// roundUp returns the next power of two at or above n, for friendlier hints.
func roundUp(n uint64) uint64 {
	p := uint64(1024)
	for p < n {
		p <<= 1
	}
	return p
}
