package watchset

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canonicalTempDir returns a symlink-free temp dir (macOS puts TMPDIR under
// a /var -> /private/var link).
func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// =============================================================================
// PathMatcher
// =============================================================================

func TestExcludeSet_IsExcluded(t *testing.T) {
	set := NewExcludeSet("/proj/sub", "/proj/build", "/etc/hosts")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"member directory", "/proj/sub", true},
		{"member file", "/etc/hosts", true},
		{"descendant is not a member", "/proj/sub/b.txt", false},
		{"prefix is not a member", "/proj/su", false},
		{"trailing separator is not a member", "/proj/sub/", false},
		{"unrelated", "/proj/a.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, set.IsExcluded(tt.path))
		})
	}
}

func TestExcludeSet_EveryMemberExcluded(t *testing.T) {
	paths := []string{"/a", "/a/b", "/c/d/e", "/"}
	set := NewExcludeSet(paths...)

	for _, p := range paths {
		assert.True(t, set.IsExcluded(p), p)
	}
	assert.False(t, NewExcludeSet().IsExcluded("/"))
}

func TestExcludeSet_Immutable(t *testing.T) {
	// Given: a set built from a caller-owned slice
	paths := []string{"/a"}
	set := NewExcludeSet(paths...)

	// When: the caller mutates the slice and the returned copy
	paths[0] = "/b"
	set.Paths()[0] = "/c"

	// Then: the set is unchanged
	assert.True(t, set.IsExcluded("/a"))
	assert.False(t, set.IsExcluded("/b"))
	assert.Equal(t, 1, set.Len())
}

func TestCanonicalExcludes(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "sub", "b.txt"))
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link")))

	prevWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	set := CanonicalExcludes([]string{"./sub", "link", "missing"}, NewCanonicalizer(0))

	assert.Equal(t, []string{
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub"),
		filepath.Join(root, "missing"),
	}, set.Paths())
}

// =============================================================================
// Canonicalizer
// =============================================================================

func TestCanonicalizer_ResolvesSymlinksAndCaches(t *testing.T) {
	root := canonicalTempDir(t)
	target := filepath.Join(root, "real.txt")
	writeFile(t, target)
	link := filepath.Join(root, "alias.txt")
	require.NoError(t, os.Symlink(target, link))

	c := NewCanonicalizer(8)

	got, err := c.Canonicalize(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.Equal(t, 1, c.Len())

	// Cached lookups return the same answer.
	got, err = c.Canonicalize(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestCanonicalizer_DanglingLinkFails(t *testing.T) {
	root := canonicalTempDir(t)
	link := filepath.Join(root, "dangling")
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), link))

	_, err := NewCanonicalizer(0).Canonicalize(link)
	assert.Error(t, err)
}

// =============================================================================
// TreeWalker
// =============================================================================

func TestWalker_Expand_DepthFirstLexical(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "b.txt"))
	writeFile(t, filepath.Join(root, "a", "z.txt"))
	writeFile(t, filepath.Join(root, "a", "deep", "y.txt"))
	writeFile(t, filepath.Join(root, "c.txt"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	w := NewWalker(NewExcludeSet(), nil, nil)

	got := w.Expand(root)

	assert.Equal(t, []WatchTarget{
		WatchTarget(filepath.Join(root, "a", "deep", "y.txt")),
		WatchTarget(filepath.Join(root, "a", "z.txt")),
		WatchTarget(filepath.Join(root, "b.txt")),
		WatchTarget(filepath.Join(root, "c.txt")),
	}, got)
}

func TestWalker_Expand_PrunesExcludedSubtree(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "keep.txt"))
	writeFile(t, filepath.Join(root, "skip", "x.txt"))
	writeFile(t, filepath.Join(root, "skip", "nested", "y.txt"))
	writeFile(t, filepath.Join(root, "drop.txt"))

	excludes := NewExcludeSet(filepath.Join(root, "skip"), filepath.Join(root, "drop.txt"))
	w := NewWalker(excludes, nil, nil)

	// Opening the excluded directory would be a bug; fail loudly if it happens.
	w.readDir = func(dir string) ([]fs.DirEntry, error) {
		require.NotEqual(t, filepath.Join(root, "skip"), dir, "walker descended into excluded dir")
		return readDirSorted(dir)
	}

	got := w.Expand(root)

	assert.Equal(t, []WatchTarget{WatchTarget(filepath.Join(root, "keep.txt"))}, got)
}

func TestWalker_Expand_ExcludedRoot(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "a.txt"))

	w := NewWalker(NewExcludeSet(root), nil, nil)

	assert.Empty(t, w.Expand(root))
}

func TestWalker_Expand_UnreadableDirectoryContinuesWithSiblings(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "a", "one.txt"))
	writeFile(t, filepath.Join(root, "locked", "secret.txt"))
	writeFile(t, filepath.Join(root, "locked", "inner", "deeper.txt"))
	writeFile(t, filepath.Join(root, "z", "two.txt"))

	logger, logs := bufferLogger()
	w := NewWalker(NewExcludeSet(), nil, logger)
	locked := filepath.Join(root, "locked")
	w.readDir = func(dir string) ([]fs.DirEntry, error) {
		if dir == locked {
			return nil, fs.ErrPermission
		}
		return readDirSorted(dir)
	}

	got := w.Expand(root)

	assert.Equal(t, []WatchTarget{
		WatchTarget(filepath.Join(root, "a", "one.txt")),
		WatchTarget(filepath.Join(root, "z", "two.txt")),
	}, got)
	assert.Contains(t, logs.String(), "failed to open dir")
	assert.Contains(t, logs.String(), locked)
}

func TestWalker_Expand_MissingRootIsEmpty(t *testing.T) {
	logger, logs := bufferLogger()
	w := NewWalker(NewExcludeSet(), nil, logger)

	got := w.Expand(filepath.Join(canonicalTempDir(t), "gone"))

	assert.Empty(t, got)
	assert.Contains(t, logs.String(), "ERR_301_DIR_OPEN")
}

func TestWalker_Expand_SymlinkCycleTerminates(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "a", "f.txt"))
	// a/back -> root, a/self -> a
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "back")))
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "self")))

	w := NewWalker(NewExcludeSet(), nil, nil)

	done := make(chan []WatchTarget, 1)
	go func() { done <- w.Expand(root) }()

	select {
	case got := <-done:
		assert.Equal(t, []WatchTarget{WatchTarget(filepath.Join(root, "a", "f.txt"))}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("walk did not terminate on symlink cycle")
	}
}

func TestWalker_Expand_SymlinkedFileRecordsTarget(t *testing.T) {
	root := canonicalTempDir(t)
	outside := canonicalTempDir(t)
	target := filepath.Join(outside, "shared.txt")
	writeFile(t, target)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "shared.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")))

	logger, logs := bufferLogger()
	w := NewWalker(NewExcludeSet(), nil, logger)

	got := w.Expand(root)

	assert.Equal(t, []WatchTarget{WatchTarget(target)}, got)
	assert.Contains(t, logs.String(), "failed to canonicalize path")
}

func TestWalker_Expand_ExcludedLinkTarget(t *testing.T) {
	root := canonicalTempDir(t)
	outside := canonicalTempDir(t)
	writeFile(t, filepath.Join(outside, "x.txt"))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "ext")))

	w := NewWalker(NewExcludeSet(outside), nil, nil)

	assert.Empty(t, w.Expand(root))
}

// =============================================================================
// WatchSetResolver
// =============================================================================

func TestResolver_ProjectWithExcludedSub(t *testing.T) {
	// Given: proj/a.txt and proj/sub/b.txt, with proj/sub excluded
	base := canonicalTempDir(t)
	proj := filepath.Join(base, "proj")
	writeFile(t, filepath.Join(proj, "a.txt"))
	writeFile(t, filepath.Join(proj, "sub", "b.txt"))

	r := NewResolver(NewExcludeSet(filepath.Join(proj, "sub")))

	// When: resolving proj
	got := r.Resolve([]string{proj})

	// Then: only proj/a.txt is watched
	assert.Equal(t, WatchList{WatchTarget(filepath.Join(proj, "a.txt"))}, got)
}

func TestResolver_DirectFilesPlusRecursiveSubdirs(t *testing.T) {
	root := canonicalTempDir(t)
	direct := []string{"1.txt", "2.txt", "3.txt"}
	for _, name := range direct {
		writeFile(t, filepath.Join(root, name))
	}
	nested := []string{
		filepath.Join("m1", "x.txt"),
		filepath.Join("m1", "deep", "y.txt"),
		filepath.Join("m2", "z.txt"),
	}
	for _, rel := range nested {
		writeFile(t, filepath.Join(root, rel))
	}

	got := NewResolver(NewExcludeSet()).Resolve([]string{root})

	want := make([]string, 0, len(direct)+len(nested))
	for _, name := range append(direct, nested...) {
		want = append(want, filepath.Join(root, name))
	}
	assert.ElementsMatch(t, want, got.Paths())
	assert.Len(t, got, len(direct)+len(nested))
}

func TestResolver_EmptyEntriesDefaultsToCwd(t *testing.T) {
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "main.go"))
	writeFile(t, filepath.Join(root, "pkg", "lib.go"))

	r := NewResolver(NewExcludeSet())
	r.getwd = func() (string, error) { return root, nil }

	got := r.Resolve(nil)

	assert.Equal(t, []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "pkg", "lib.go"),
	}, got.Paths())
}

func TestResolver_GetwdFailureYieldsEmptyList(t *testing.T) {
	logger, logs := bufferLogger()
	r := NewResolver(NewExcludeSet(), WithLogger(logger))
	r.getwd = func() (string, error) { return "", errors.New("cwd removed") }

	assert.Empty(t, r.Resolve(nil))
	assert.Contains(t, logs.String(), "cwd removed")
}

func TestResolver_DeduplicatesOverlappingEntries(t *testing.T) {
	// Given: a directory entry plus an explicit file inside it and a link to it
	root := canonicalTempDir(t)
	a := filepath.Join(root, "a.txt")
	writeFile(t, a)
	writeFile(t, filepath.Join(root, "sub", "b.txt"))
	require.NoError(t, os.Symlink(a, filepath.Join(root, "alias.txt")))

	r := NewResolver(NewExcludeSet())

	// When: resolving overlapping entries
	got := r.Resolve([]string{a, root, filepath.Join(root, "sub"), filepath.Join(root, "alias.txt")})

	// Then: each canonical path appears once, in first-seen order
	assert.Equal(t, []string{a, filepath.Join(root, "sub", "b.txt")}, got.Paths())
}

func TestResolver_SkipsBadEntriesAndContinues(t *testing.T) {
	root := canonicalTempDir(t)
	good := filepath.Join(root, "good.txt")
	writeFile(t, good)

	logger, logs := bufferLogger()
	r := NewResolver(NewExcludeSet(), WithLogger(logger))

	got := r.Resolve([]string{filepath.Join(root, "missing.txt"), good})

	assert.Equal(t, WatchList{WatchTarget(good)}, got)
	assert.Contains(t, logs.String(), "failed to canonicalize path")
}

func TestResolver_ExcludedFileEntry(t *testing.T) {
	root := canonicalTempDir(t)
	a := filepath.Join(root, "a.txt")
	writeFile(t, a)

	got := NewResolver(NewExcludeSet(a)).Resolve([]string{a})

	assert.Empty(t, got)
}

type fakeInfo struct {
	name string
	mode fs.FileMode
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() any           { return nil }

func TestResolver_UnsupportedKindSkipped(t *testing.T) {
	root := canonicalTempDir(t)
	fifo := filepath.Join(root, "pipe")
	writeFile(t, fifo)
	good := filepath.Join(root, "good.txt")
	writeFile(t, good)

	logger, logs := bufferLogger()
	r := NewResolver(NewExcludeSet(), WithLogger(logger))
	r.lstat = func(path string) (os.FileInfo, error) {
		if path == fifo {
			return fakeInfo{name: "pipe", mode: fs.ModeNamedPipe}, nil
		}
		return os.Lstat(path)
	}

	got := r.Resolve([]string{fifo, good})

	assert.Equal(t, WatchList{WatchTarget(good)}, got)
	assert.Contains(t, logs.String(), "unsupported file type")
}

func TestResolver_SharesCanonicalizer(t *testing.T) {
	canon := NewCanonicalizer(0)
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "a.txt"))

	NewResolver(NewExcludeSet(), WithCanonicalizer(canon)).Resolve([]string{root})

	assert.Equal(t, 1, canon.Len())
}
