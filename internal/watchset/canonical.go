package watchset

import (
	"fmt"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCanonicalCacheSize is the default number of resolved paths kept.
const DefaultCanonicalCacheSize = 4096

// Canonicalizer resolves paths to absolute, symlink-free form.
// Successful resolutions are cached; symlink farms and overlapping watch
// entries tend to resolve the same absolute path many times during startup.
type Canonicalizer struct {
	cache *lru.Cache[string, string]
}

// NewCanonicalizer creates a canonicalizer with an LRU cache of the given
// size. A non-positive size selects DefaultCanonicalCacheSize.
func NewCanonicalizer(cacheSize int) *Canonicalizer {
	if cacheSize <= 0 {
		cacheSize = DefaultCanonicalCacheSize
	}
	cache, _ := lru.New[string, string](cacheSize)
	return &Canonicalizer{cache: cache}
}

// Canonicalize returns the absolute, symlink-free form of path.
// It fails if any component does not exist or a link dangles.
func (c *Canonicalizer) Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if resolved, ok := c.cache.Get(abs); ok {
		return resolved, nil
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}
	c.cache.Add(abs, resolved)
	return resolved, nil
}

// Len returns the number of cached resolutions.
func (c *Canonicalizer) Len() int {
	return c.cache.Len()
}

// stripDotSlash removes a single leading "./" from a user-typed path.
func stripDotSlash(path string) string {
	if len(path) > 2 && strings.HasPrefix(path, "./") {
		return path[2:]
	}
	return path
}
