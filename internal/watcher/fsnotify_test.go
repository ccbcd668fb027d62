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

func TestFSWatcher_DetectsCreate(t *testing.T) {
	// Given: a watcher over an empty directory
	root := t.TempDir()
	w := NewFSWatcher(Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, w.Start(context.Background(), []string{root}))
	defer func() { _ = w.Stop() }()

	// When: a file is created
	path := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	// Then: a debounced batch arrives with the new path
	select {
	case batch := <-w.Events():
		require.NotEmpty(t, batch)
		found := false
		for _, ev := range batch {
			if ev.Path == path {
				found = true
				assert.NotEqual(t, OpDelete, ev.Operation)
			}
		}
		assert.True(t, found)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
}

func TestFSWatcher_RejectsOnlyMissingRoots(t *testing.T) {
	// Given: no watchable roots at all
	w := NewFSWatcher(Options{})

	// Then: starting fails
	err := w.Start(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	// And: a mix of missing and real roots starts fine
	w2 := NewFSWatcher(Options{})
	err = w2.Start(context.Background(), []string{
		filepath.Join(t.TempDir(), "missing"),
		t.TempDir(),
	})
	require.NoError(t, err)
	_ = w2.Stop()
}

func TestFSWatcher_StopIsIdempotent(t *testing.T) {
	w := NewFSWatcher(Options{})
	require.NoError(t, w.Start(context.Background(), []string{t.TempDir()}))

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
