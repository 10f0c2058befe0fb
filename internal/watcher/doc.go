// Package watcher provides the event reactor: it registers a fixed list of
// files with an OS change-notification facility and runs a reaction for each
// modification.
//
// Two sources are available:
//   - Primary: fsnotify (inotify, kqueue, ReadDirectoryChangesW)
//   - Fallback: polling, for environments where fsnotify fails (network
//     mounts, Docker volumes, exhausted inotify instances)
//
// Each call to Source.Next returns the batch of events ready at that moment.
// With coalescing enabled the reactor keeps only the first event of a batch;
// the others are dropped, so changes to other files within the same cycle
// do not trigger their own reaction.
//
// Usage:
//
//	src, err := watcher.NewSource(watcher.DefaultOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	r := watcher.NewReactor(src, run, watcher.ReactorOptions{Coalesce: true}, logger, out)
//	r.Register(list)
//	return r.Run(ctx)
package watcher
