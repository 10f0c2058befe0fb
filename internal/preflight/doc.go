// Package preflight runs advisory checks before the watch loop starts.
//
// The checks compare the resolved watch list against the resources the
// selected backend consumes per target: open descriptors on kqueue
// platforms, inotify watches on Linux. Nothing here stops kwatch from
// running; failures are reported as warnings so the user can raise the
// limit before targets start dropping out of registration.
//
//	checker := preflight.New(preflight.WithBackend("fsnotify"))
//	results := checker.RunAll(len(list))
//	for _, r := range checker.Warnings(results) {
//	    out.Warning(r.Name + ": " + r.Message)
//	}
package preflight
