package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the source watcher.
type WatcherConfig struct {
	// Roots are the source directories watched recursively.
	Roots []string

	// Files are individual files to watch, such as the configuration file.
	Files []string

	// Extension selects the source files of interest. Defaults to ".java".
	Extension string

	// Excludes are doublestar patterns, relative to each root, of sources
	// whose changes are ignored.
	Excludes []string

	// DebounceDelay is how long changes are collected before a batch is
	// emitted.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// ChangeSet is one debounced batch of changed paths, sorted.
type ChangeSet struct {
	Paths []string
}

// Watcher emits a ChangeSet whenever watched sources change content, appear
// or disappear.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	files   map[string]struct{}
	roots   []string

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	events chan ChangeSet
}

// NewWatcher creates a watcher. Nothing is watched until Start.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	for _, p := range config.Excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	roots := make([]string, 0, len(config.Roots))
	for _, r := range config.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", r, err)
		}
		roots = append(roots, abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 300 * time.Millisecond
	}
	if config.Extension == "" {
		config.Extension = ".java"
	}

	files := make(map[string]struct{}, len(config.Files))
	for _, f := range config.Files {
		if abs, err := filepath.Abs(f); err == nil {
			files[abs] = struct{}{}
		}
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  config.Logger,
		files:   files,
		roots:   roots,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan ChangeSet, 16),
	}, nil
}

// Events returns the channel of change batches.
func (w *Watcher) Events() <-chan ChangeSet {
	return w.events
}

// Start adds the watches and begins processing events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.config.Roots {
		if err := w.addWatchesRecursive(root); err != nil {
			return err
		}
	}
	// Editors replace files by rename, so the parent directory is watched.
	dirs := make(map[string]struct{})
	for f := range w.files {
		w.recordHash(f)
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Source watcher started",
		"roots", w.config.Roots,
		"files", w.config.Files,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop releases the fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Run starts the watcher and calls onChange for every batch until ctx is
// done. Batches arriving while onChange runs are queued.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, ChangeSet)) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cs := <-w.events:
			onChange(ctx, cs)
		}
	}
}

func skipWatchDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "target", "build", "bin", "out", "node_modules", "vendor":
		return true
	}
	return false
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.watched(path) {
				w.recordHash(path)
			}
			return nil
		}
		if path != root && skipWatchDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) watched(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if _, ok := w.files[abs]; ok {
		return true
	}
	return strings.HasSuffix(abs, w.config.Extension) && !w.excluded(abs)
}

// excluded reports whether abs matches an exclude pattern relative to one of
// the roots it lies under.
func (w *Watcher) excluded(abs string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		for _, p := range w.config.Excludes {
			if ok, _ := doublestar.Match(p, filepath.ToSlash(rel)); ok {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.watched(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !skipWatchDir(filepath.Base(path)) {
				if err := w.addWatchesRecursive(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Source change detected", "path", path, "op", event.Op.String())
}

// flushPending emits the paths whose content changed since they were last
// seen.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var changed []string
	for path := range toProcess {
		if ctx.Err() != nil {
			return
		}
		if w.recordHash(path) {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)

	select {
	case w.events <- ChangeSet{Paths: changed}:
		w.logger.Debug("Sent change set", "paths", len(changed))
	default:
		w.logger.Warn("Event channel full, dropping change set", "paths", len(changed))
	}
}

// recordHash stores the content hash of path and reports whether it differs
// from the previous one. A missing file counts as a change once.
func (w *Watcher) recordHash(path string) bool {
	sum := ""
	if data, err := os.ReadFile(path); err == nil {
		h := sha256.Sum256(data)
		sum = hex.EncodeToString(h[:])
	} else if !errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("Failed to read changed file", "path", path, "error", err)
	}

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	old, seen := w.hashes[path]
	if sum == "" {
		delete(w.hashes, path)
		return seen
	}
	w.hashes[path] = sum
	return !seen || old != sum
}
