package watchset

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
)

// WatchTarget is the canonical path of a regular file to observe.
type WatchTarget string

// String returns the path.
func (t WatchTarget) String() string {
	return string(t)
}

// Walker expands directories into the regular files beneath them.
type Walker struct {
	excludes ExcludeSet
	canon    *Canonicalizer
	logger   *slog.Logger

	// readDir lists a directory; replaced in tests to simulate failures.
	readDir func(path string) ([]fs.DirEntry, error)
}

// NewWalker creates a walker that prunes the given exclusions.
func NewWalker(excludes ExcludeSet, canon *Canonicalizer, logger *slog.Logger) *Walker {
	if canon == nil {
		canon = NewCanonicalizer(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		excludes: excludes,
		canon:    canon,
		logger:   logger,
		readDir:  readDirSorted,
	}
}

// frame is one directory on the explicit walk stack.
type frame struct {
	dir     string
	entries []fs.DirEntry
	next    int
}

// Expand returns the regular files under root, depth first, with each
// directory's entries in lexical order. root must be canonical.
// Unreadable directories are reported and contribute nothing.
func (w *Walker) Expand(root string) []WatchTarget {
	return w.expand(root, make(map[string]struct{}))
}

// expand walks root using an explicit stack. visited holds canonical
// directory paths already entered, which stops symlink cycles and lets
// callers share the set across several roots.
func (w *Walker) expand(root string, visited map[string]struct{}) []WatchTarget {
	if w.excludes.IsExcluded(root) {
		return nil
	}
	if _, seen := visited[root]; seen {
		return nil
	}
	visited[root] = struct{}{}

	var targets []WatchTarget
	var stack []*frame

	if f := w.open(root); f != nil {
		stack = append(stack, f)
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		child := filepath.Join(top.dir, entry.Name())
		if w.excludes.IsExcluded(child) {
			continue
		}

		switch mode := entry.Type(); {
		case mode.IsDir():
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			if f := w.open(child); f != nil {
				stack = append(stack, f)
			}

		case mode.IsRegular():
			targets = append(targets, WatchTarget(child))

		case mode&fs.ModeSymlink != 0:
			resolved, info, ok := w.follow(child)
			if !ok {
				continue
			}
			switch {
			case info.IsDir():
				if _, seen := visited[resolved]; seen {
					continue
				}
				visited[resolved] = struct{}{}
				if f := w.open(resolved); f != nil {
					stack = append(stack, f)
				}
			case info.Mode().IsRegular():
				targets = append(targets, WatchTarget(resolved))
			default:
				w.logger.Debug("skipping non-regular link target",
					slog.String("path", child),
					slog.String("target", resolved))
			}

		default:
			w.logger.Debug("skipping non-regular entry", slog.String("path", child))
		}
	}

	return targets
}

// open lists dir and returns its stack frame, or nil after reporting
// a traversal error.
func (w *Walker) open(dir string) *frame {
	entries, err := w.readDir(dir)
	if err != nil {
		kwerrors.Log(w.logger, kwerrors.TraversalError(dir, err))
		return nil
	}
	return &frame{dir: dir, entries: entries}
}

// follow resolves a symlink found during the walk. The resolved path is
// checked against the exclusions as well, since it is what gets recorded.
func (w *Walker) follow(link string) (string, fs.FileInfo, bool) {
	resolved, err := w.canon.Canonicalize(link)
	if err != nil {
		kwerrors.Log(w.logger, kwerrors.ResolutionError(kwerrors.ErrCodeCanonicalize, link, err))
		return "", nil, false
	}
	if w.excludes.IsExcluded(resolved) {
		return "", nil, false
	}
	info, err := os.Stat(resolved)
	if err != nil {
		kwerrors.Log(w.logger, kwerrors.ResolutionError(kwerrors.ErrCodeStat, resolved, err))
		return "", nil, false
	}
	return resolved, info, true
}

// readDirSorted reads all entries of dir sorted by name. The directory handle
// is closed on every return path.
func readDirSorted(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}
