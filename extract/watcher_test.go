package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, cfg WatcherConfig) *Watcher {
	t.Helper()
	w, err := NewWatcher(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func drain(w *Watcher) []ChangeSet {
	var out []ChangeSet
	for {
		select {
		case cs := <-w.events:
			out = append(out, cs)
		default:
			return out
		}
	}
}

func TestWatcher_FlushReportsContentChanges(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Order.java")
	require.NoError(t, os.WriteFile(src, []byte("class Order {}"), 0644))

	w := newTestWatcher(t, WatcherConfig{Roots: []string{root}})
	require.NoError(t, w.addWatchesRecursive(root))
	ctx := context.Background()

	// Touch without a content change.
	w.handleFSEvent(fsnotify.Event{Name: src, Op: fsnotify.Write})
	w.flushPending(ctx)
	assert.Empty(t, drain(w))

	require.NoError(t, os.WriteFile(src, []byte("class Order { int id; }"), 0644))
	w.handleFSEvent(fsnotify.Event{Name: src, Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})
	w.flushPending(ctx)
	assert.Equal(t, []ChangeSet{{Paths: []string{src}}}, drain(w))

	require.NoError(t, os.Remove(src))
	w.handleFSEvent(fsnotify.Event{Name: src, Op: fsnotify.Remove})
	w.flushPending(ctx)
	assert.Equal(t, []ChangeSet{{Paths: []string{src}}}, drain(w))
}

func TestWatcher_ExcludedSources(t *testing.T) {
	root := t.TempDir()
	mainSrc := filepath.Join(root, "app", "src", "main", "java", "Order.java")
	testSrc := filepath.Join(root, "app", "src", "test", "java", "OrderTest.java")
	for _, path := range []string{mainSrc, testSrc} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("class A {}"), 0644))
	}

	w := newTestWatcher(t, WatcherConfig{Roots: []string{root}, Excludes: []string{"**/src/test/**"}})
	require.NoError(t, w.addWatchesRecursive(root))

	for _, path := range []string{mainSrc, testSrc} {
		require.NoError(t, os.WriteFile(path, []byte("class A { int v; }"), 0644))
		w.handleFSEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	}
	w.flushPending(context.Background())
	assert.Equal(t, []ChangeSet{{Paths: []string{mainSrc}}}, drain(w), "changes to excluded sources do not trigger a run")
}

func TestNewWatcher_InvalidExclude(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{Excludes: []string{"src/[test"}})
	assert.Error(t, err)
}

func TestWatcher_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "hexguard.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("architecture: {}\n"), 0644))

	w := newTestWatcher(t, WatcherConfig{Files: []string{cfg}})
	abs, err := filepath.Abs(cfg)
	require.NoError(t, err)
	w.recordHash(abs)

	require.NoError(t, os.WriteFile(cfg, []byte("architecture: {domain: {}}\n"), 0644))
	w.handleFSEvent(fsnotify.Event{Name: abs, Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write})
	w.flushPending(context.Background())
	assert.Equal(t, []ChangeSet{{Paths: []string{abs}}}, drain(w))
}

func TestWatcher_Run(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "com", "acme"), 0755))

	w := newTestWatcher(t, WatcherConfig{Roots: []string{root}, DebounceDelay: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan ChangeSet, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, cs ChangeSet) {
			select {
			case changes <- cs:
			default:
			}
		})
	}()

	// The watch is added asynchronously, so keep changing the file until a
	// batch names it.
	src := filepath.Join(root, "com", "acme", "Order.java")
	attempt := 0
	require.Eventually(t, func() bool {
		attempt++
		_ = os.WriteFile(src, []byte(fmt.Sprintf("class Order { int v%d; }", attempt)), 0644)
		select {
		case cs := <-changes:
			return slices.Contains(cs.Paths, src)
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
