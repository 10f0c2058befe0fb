package watchset

import (
	"log/slog"
	"path/filepath"
)

// ExcludeSet is an immutable, ordered list of canonical paths to skip.
type ExcludeSet struct {
	paths []string
}

// NewExcludeSet builds an ExcludeSet from paths that are already canonical.
// The slice is copied; later changes by the caller have no effect.
func NewExcludeSet(paths ...string) ExcludeSet {
	cp := make([]string, len(paths))
	copy(cp, paths)
	return ExcludeSet{paths: cp}
}

// CanonicalExcludes canonicalizes user-typed exclude entries and builds an
// ExcludeSet from them. An entry that cannot be canonicalized (usually because
// it does not exist yet) is kept in absolute, cleaned form so it still matches
// if a later path resolves to it.
func CanonicalExcludes(entries []string, canon *Canonicalizer) ExcludeSet {
	if canon == nil {
		canon = NewCanonicalizer(0)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = stripDotSlash(entry)
		resolved, err := canon.Canonicalize(entry)
		if err != nil {
			abs, absErr := filepath.Abs(entry)
			if absErr != nil {
				slog.Debug("dropping exclude entry",
					slog.String("entry", entry),
					slog.String("error", absErr.Error()))
				continue
			}
			resolved = abs
		}
		paths = append(paths, resolved)
	}
	return ExcludeSet{paths: paths}
}

// IsExcluded reports whether path exactly equals one of the exclude entries.
func (e ExcludeSet) IsExcluded(path string) bool {
	for _, p := range e.paths {
		if p == path {
			return true
		}
	}
	return false
}

// Paths returns a copy of the exclude entries in order.
func (e ExcludeSet) Paths() []string {
	cp := make([]string, len(e.paths))
	copy(cp, e.paths)
	return cp
}

// Len returns the number of exclude entries.
func (e ExcludeSet) Len() int {
	return len(e.paths)
}
