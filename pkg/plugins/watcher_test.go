package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dirs ...string) <-chan ManifestChange {
	t.Helper()
	w, err := NewWatcher(nil, dirs...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	changes := make(chan ManifestChange, 16)
	go func() {
		defer close(done)
		w.Run(ctx, func(c ManifestChange) {
			select {
			case changes <- c:
			default:
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return changes
}

func TestWatcher_ReportsManifestWrites(t *testing.T) {
	dir := t.TempDir()
	pluginDir := writeManifest(t, dir, "chat", "name: chat\nversion: 1.0.0\n")
	changes := startWatcher(t, dir, filepath.Join(dir, "missing"))

	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "README.md"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, ManifestFile), []byte("name: chat\nversion: 1.1.0\n"), 0644))

	select {
	case c := <-changes:
		assert.Equal(t, "chat", c.Plugin)
		assert.Equal(t, filepath.Join(pluginDir, ManifestFile), c.Path)
		assert.NotEmpty(t, c.Op)
	case <-time.After(5 * time.Second):
		t.Fatal("no manifest change reported")
	}
}

func TestNewWatcher_SkipsMissingDirectories(t *testing.T) {
	w, err := NewWatcher(nil, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, func(ManifestChange) {}))
}
