package watchset

import (
	"log/slog"
	"os"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
)

// WatchList is the fixed, ordered list of files registered for notification.
type WatchList []WatchTarget

// Paths returns the targets as plain strings.
func (l WatchList) Paths() []string {
	paths := make([]string, len(l))
	for i, t := range l {
		paths[i] = string(t)
	}
	return paths
}

// Resolver turns watch entries into a WatchList.
type Resolver struct {
	excludes ExcludeSet
	canon    *Canonicalizer
	logger   *slog.Logger
	walker   *Walker
	lstat    func(string) (os.FileInfo, error)
	getwd    func() (string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report skipped entries.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCanonicalizer shares a canonicalizer (and its cache) with the resolver.
func WithCanonicalizer(canon *Canonicalizer) Option {
	return func(r *Resolver) {
		if canon != nil {
			r.canon = canon
		}
	}
}

// NewResolver creates a resolver applying the given exclusions.
func NewResolver(excludes ExcludeSet, opts ...Option) *Resolver {
	r := &Resolver{
		excludes: excludes,
		logger:   slog.Default(),
		lstat:    os.Lstat,
		getwd:    os.Getwd,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.canon == nil {
		r.canon = NewCanonicalizer(0)
	}
	r.walker = NewWalker(excludes, r.canon, r.logger)
	return r
}

// Resolve canonicalizes each entry and collects the regular files it names.
// Directories are expanded recursively. With no entries, the current working
// directory is used. The result holds each canonical path once, in the order
// first seen.
func (r *Resolver) Resolve(entries []string) WatchList {
	if len(entries) == 0 {
		cwd, err := r.getwd()
		if err != nil {
			kwerrors.Log(r.logger, kwerrors.ResolutionError(kwerrors.ErrCodeCanonicalize, ".", err))
			return nil
		}
		entries = []string{cwd}
	}

	var list WatchList
	seen := make(map[WatchTarget]struct{})
	visited := make(map[string]struct{})

	add := func(t WatchTarget) {
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		list = append(list, t)
	}

	for _, entry := range entries {
		path, err := r.canon.Canonicalize(entry)
		if err != nil {
			kwerrors.Log(r.logger, kwerrors.ResolutionError(kwerrors.ErrCodeCanonicalize, entry, err))
			continue
		}

		if r.excludes.IsExcluded(path) {
			r.logger.Debug("watch entry excluded", slog.String("path", path))
			continue
		}

		info, err := r.lstat(path)
		if err != nil {
			kwerrors.Log(r.logger, kwerrors.ResolutionError(kwerrors.ErrCodeStat, path, err))
			continue
		}

		switch mode := info.Mode(); {
		case mode.IsRegular():
			add(WatchTarget(path))
		case mode.IsDir():
			for _, t := range r.walker.expand(path, visited) {
				add(t)
			}
		default:
			kwerrors.Log(r.logger, kwerrors.ResolutionError(kwerrors.ErrCodeUnsupportedKind, path, nil).
				WithDetail("mode", mode.Type().String()))
		}
	}

	return list
}
