package scene

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcherCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(zaptest.NewLogger(t), 50*time.Millisecond, dir)
	require.NoError(t, err)
	defer w.Close()

	scenePath := filepath.Join(dir, "rig.yaml")
	scriptPath := filepath.Join(dir, "drive.tengo")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(scenePath, []byte("name: rig\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(scriptPath, []byte("x := 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	select {
	case files := <-w.Events():
		assert.Equal(t, []string{scriptPath, scenePath}, files)
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case files := <-w.Events():
		t.Fatalf("unexpected second event: %v", files)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher(zaptest.NewLogger(t), 0, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestWatched(t *testing.T) {
	tests := map[string]bool{
		"scene.yaml":   true,
		"scene.YML":    true,
		"drive.tengo":  true,
		"notes.txt":    false,
		"config.toml":  false,
		"no-extension": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, Watched(path), path)
	}
}
