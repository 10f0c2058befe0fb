package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{0, "NONE"},
		{OpModify, "MODIFY"},
		{OpCreate | OpModify, "MODIFY|CREATE"},
		{OpDelete | OpRename, "DELETE|RENAME"},
		{Operation(1 << 10), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"zero value", Options{}, false},
		{"poll backend", Options{Backend: BackendPoll, PollInterval: time.Second}, false},
		{"unknown backend", Options{Backend: "kqueue"}, true},
		{"negative interval", Options{PollInterval: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{Backend: BackendPoll}.WithDefaults()

	assert.Equal(t, BackendPoll, got.Backend)
	assert.Equal(t, 500*time.Millisecond, got.PollInterval)
	assert.Equal(t, uint(256), got.EventBufferSize)
}

func TestNewSource_SelectsBackend(t *testing.T) {
	src, err := NewSource(Options{Backend: BackendPoll, PollInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "polling", src.Name())

	src2, err := NewSource(DefaultOptions(), nil)
	require.NoError(t, err)
	defer src2.Close()
	assert.Contains(t, []string{BackendFSNotify, "polling"}, src2.Name())
}

func TestNewSource_InvalidOptions(t *testing.T) {
	_, err := NewSource(Options{Backend: "bogus"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestFSNotifySource_ReportsModification(t *testing.T) {
	// Given: a registered file
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("one"), 0o644))

	src, err := NewFSNotifySource(16)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.Add(file))

	// When: the file is written
	require.NoError(t, os.WriteFile(file, []byte("two"), 0o644))

	// Then: a MODIFY event for that path is returned
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var sawModify bool
	for !sawModify {
		batch, err := src.Next(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, batch)
		for _, ev := range batch {
			assert.Equal(t, file, ev.Path)
			if ev.Operation.Has(OpModify) {
				sawModify = true
			}
		}
	}
}

func TestFSNotifySource_AddMissingFile(t *testing.T) {
	src, err := NewFSNotifySource(16)
	require.NoError(t, err)
	defer src.Close()

	assert.Error(t, src.Add(filepath.Join(t.TempDir(), "missing")))
}

func TestFSNotifySource_CloseIsIdempotent(t *testing.T) {
	src, err := NewFSNotifySource(16)
	require.NoError(t, err)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	assert.ErrorIs(t, src.Add("/tmp"), ErrSourceClosed)
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestPollingSource_DetectsModification(t *testing.T) {
	// Given: two registered files
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	src := NewPollingSource(time.Hour)
	defer src.Close()
	require.NoError(t, src.Add(a))
	require.NoError(t, src.Add(b))

	// When: both files change size before the next scan
	require.NoError(t, os.WriteFile(b, []byte("bigger b"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("bigger a"), 0o644))
	batch := src.detectChanges()

	// Then: one batch in registration order
	require.Len(t, batch, 2)
	assert.Equal(t, a, batch[0].Path)
	assert.Equal(t, b, batch[1].Path)
	assert.Equal(t, OpModify, batch[0].Operation)
	assert.Empty(t, src.detectChanges())
}

func TestPollingSource_NextReturnsOnChange(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	src := NewPollingSource(10 * time.Millisecond)
	defer src.Close()
	require.NoError(t, src.Add(file))
	require.NoError(t, os.WriteFile(file, []byte("changed"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	batch, err := src.Next(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, file, batch[0].Path)
	assert.True(t, batch[0].Operation.Has(OpModify))
}

func TestPollingSource_DeleteAndRecreate(t *testing.T) {
	// Given: a source with a scripted stat
	now := time.Now()
	present := true
	src := NewPollingSource(5 * time.Millisecond)
	defer src.Close()
	src.stat = func(string) (os.FileInfo, error) {
		if !present {
			return nil, os.ErrNotExist
		}
		return fakeFileInfo{mod: now}, nil
	}
	require.NoError(t, src.Add("/p/a"))

	// When: the file disappears
	present = false
	events := src.detectChanges()

	// Then: a single DELETE is emitted
	require.Len(t, events, 1)
	assert.Equal(t, OpDelete, events[0].Operation)
	assert.Empty(t, src.detectChanges())

	// When: it comes back
	present = true
	events = src.detectChanges()
	require.Len(t, events, 1)
	assert.True(t, events[0].Operation.Has(OpModify))
	assert.True(t, events[0].Operation.Has(OpCreate))
}

func TestPollingSource_AddTwiceIsNoop(t *testing.T) {
	src := NewPollingSource(time.Second)
	defer src.Close()
	src.stat = func(string) (os.FileInfo, error) { return fakeFileInfo{}, nil }

	require.NoError(t, src.Add("/p/a"))
	require.NoError(t, src.Add("/p/a"))
	assert.Len(t, src.order, 1)
}

func TestPollingSource_CloseUnblocksNext(t *testing.T) {
	src := NewPollingSource(time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := src.Next(context.Background())
		done <- err
	}()

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSourceClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
	assert.ErrorIs(t, src.Add("/p/a"), ErrSourceClosed)
}

type fakeFileInfo struct {
	mod  time.Time
	size int64
}

func (f fakeFileInfo) Name() string       { return "fake" }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return f.mod }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() any           { return nil }
