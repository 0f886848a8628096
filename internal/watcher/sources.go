package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/source"
)

// SourceWatcher reports changes to the files of a set of sources.
type SourceWatcher struct {
	sources   []source.Descriptor
	roots     []string
	opts      Options
	debouncer *Debouncer
	fsWatcher *fsnotify.Watcher
	errors    chan error

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher for sources. Every source's directory must exist.
// fsnotify is used unless it fails to initialize or opts.ForcePolling is set.
func New(sources []source.Descriptor, opts Options) (*SourceWatcher, error) {
	if len(sources) == 0 {
		return nil, amerrors.ConfigError("no sources to watch", nil).
			WithSuggestion("add sources to the config file")
	}
	opts = opts.WithDefaults()

	var roots []string
	for _, d := range sources {
		dir, err := filepath.Abs(d.WatchDir())
		if err != nil {
			return nil, amerrors.ConfigError(fmt.Sprintf("cannot resolve %s", d.WatchDir()), err)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, amerrors.New(amerrors.ErrCodeSourceNotFound,
				fmt.Sprintf("watch directory %s not found", dir), err).WithDetail("path", dir)
		}
		if !slices.Contains(roots, dir) {
			roots = append(roots, dir)
		}
	}

	w := &SourceWatcher{
		sources:   sources,
		roots:     roots,
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce, opts.EventBufferSize),
		errors:    make(chan error, 10),
	}
	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
		} else {
			slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		}
	}
	return w, nil
}

// Mode returns "fsnotify" or "polling".
func (w *SourceWatcher) Mode() string {
	if w.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// Roots returns the watched directories.
func (w *SourceWatcher) Roots() []string {
	return slices.Clone(w.roots)
}

// Start registers the watches and begins delivering events in the
// background until ctx is done or Stop is called.
func (w *SourceWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher stopped")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true
	ctx, w.cancel = context.WithCancel(ctx)

	if w.fsWatcher == nil {
		poller := NewPollingWatcher(w.opts.PollInterval, w.roots, w.handle)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			_ = poller.Run(ctx)
		}()
		slog.Info("watch_started", slog.String("mode", "polling"), slog.Int("roots", len(w.roots)))
		return nil
	}

	for _, d := range w.sources {
		if err := w.addSource(d); err != nil {
			return amerrors.New(amerrors.ErrCodeSourceNotFound,
				fmt.Sprintf("cannot watch %s", d.WatchDir()), err)
		}
	}
	w.wg.Add(1)
	go w.loop(ctx)
	slog.Info("watch_started", slog.String("mode", "fsnotify"), slog.Int("roots", len(w.roots)))
	return nil
}

// addSource watches the source directory and, for recursive sources,
// every non-hidden directory below it.
func (w *SourceWatcher) addSource(d source.Descriptor) error {
	root, err := filepath.Abs(d.WatchDir())
	if err != nil {
		return err
	}
	if d.Type == config.SourceSingleFile || !d.Recursive {
		return w.fsWatcher.Add(root)
	}
	return w.addTree(root)
}

func (w *SourceWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !e.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(e.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *SourceWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleNotify(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

// handleNotify converts an fsnotify event, watching new directories of
// recursive sources as they appear.
func (w *SourceWatcher) handleNotify(event fsnotify.Event) {
	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.recursiveCovers(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}
	w.handle(FileEvent{Path: event.Name, Operation: op, Timestamp: time.Now()})
}

// handle forwards events covered by at least one source.
func (w *SourceWatcher) handle(event FileEvent) {
	if !w.covers(event.Path) {
		return
	}
	slog.Debug("watch_event", slog.String("path", event.Path), slog.String("op", event.Operation.String()))
	w.debouncer.Add(event)
}

func (w *SourceWatcher) covers(path string) bool {
	for _, d := range w.sources {
		if d.Covers(path) {
			return true
		}
	}
	return false
}

func (w *SourceWatcher) recursiveCovers(path string) bool {
	for _, d := range w.sources {
		if d.Recursive && d.Covers(path) {
			return true
		}
	}
	return false
}

func (w *SourceWatcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Events returns the channel of debounced bursts. It is closed by Stop.
func (w *SourceWatcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watch errors.
func (w *SourceWatcher) Errors() <-chan error {
	return w.errors
}

// Stop stops watching and closes the event channel.
// Safe to call multiple times.
func (w *SourceWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	var err error
	if w.fsWatcher != nil {
		err = w.fsWatcher.Close()
	}
	w.wg.Wait()
	w.debouncer.Stop()
	return err
}
