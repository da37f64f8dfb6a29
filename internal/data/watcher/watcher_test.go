package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, fw *FileWatcher, path string) model.FileEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-fw.Events():
			require.True(t, ok, "event channel closed")
			if ev.Path == path {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestFileWatcherReportsTraceWrites(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher([]string{dir})
	require.NoError(t, err)
	defer fw.Close()

	path := filepath.Join(dir, "case.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	ev := waitForEvent(t, fw, path)
	assert.Equal(t, path, ev.Path)
	assert.NotEmpty(t, ev.Operation)
}

func TestFileWatcherIgnoresReports(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher([]string{dir})
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "case.report.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644))
	marker := filepath.Join(dir, "marker.json")
	require.NoError(t, os.WriteFile(marker, []byte(`{}`), 0644))

	// The first event seen must be the trace written last.
	select {
	case ev := <-fw.Events():
		assert.Equal(t, marker, ev.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
	}
}

func TestFileWatcherNewDirectory(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher([]string{dir})
	require.NoError(t, err)
	defer fw.Close()

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(sub, "case.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))
	waitForEvent(t, fw, path)
}

func TestFileWatcherMissingPath(t *testing.T) {
	_, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestFileWatcherClose(t *testing.T) {
	fw, err := NewFileWatcher([]string{t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, fw.Close())
	require.NoError(t, fw.Close())

	select {
	case _, ok := <-fw.Events():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestIsRemoval(t *testing.T) {
	assert.True(t, IsRemoval(model.FileEvent{Operation: "REMOVE"}))
	assert.True(t, IsRemoval(model.FileEvent{Operation: "RENAME"}))
	assert.False(t, IsRemoval(model.FileEvent{Operation: "WRITE"}))
}
