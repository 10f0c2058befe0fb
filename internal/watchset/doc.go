// Package watchset turns user-supplied watch entries into the fixed list of
// regular files that kwatch observes.
//
// Every path handled here is canonical: absolute, cleaned, and free of
// symlinks. Exclusion is exact canonical-path equality; there are no glob or
// prefix semantics. An excluded directory prunes its whole subtree.
//
// Usage:
//
//	canon := watchset.NewCanonicalizer(0)
//	excludes := watchset.CanonicalExcludes([]string{"./build"}, canon)
//	r := watchset.NewResolver(excludes, watchset.WithCanonicalizer(canon))
//	list := r.Resolve([]string{"src", "Makefile"})
//
// Failures while resolving or walking are logged and the offending entry or
// subtree is skipped; Resolve itself never fails.
package watchset
