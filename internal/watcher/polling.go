package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by rescanning its roots on an interval.
// It is the fallback when fsnotify cannot be used.
type PollingWatcher struct {
	interval time.Duration
	roots    []string
	emit     func(FileEvent)

	mu    sync.Mutex
	state map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher over roots that hands every
// detected change to emit.
func NewPollingWatcher(interval time.Duration, roots []string, emit func(FileEvent)) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		roots:    roots,
		emit:     emit,
		state:    make(map[string]fileSnapshot),
	}
}

// Run takes a baseline scan and then polls until ctx is done.
func (p *PollingWatcher) Run(ctx context.Context) error {
	p.mu.Lock()
	p.state = p.scan()
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

// scan records the state of every regular file under the roots.
// Unreadable entries are skipped.
func (p *PollingWatcher) scan() map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	for _, root := range p.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			state[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
			return nil
		})
		if err != nil {
			slog.Debug("poll_scan_failed", slog.String("root", root), slog.String("error", err.Error()))
		}
	}
	return state
}

// detectChanges diffs a fresh scan against the previous one.
func (p *PollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	current := p.scan()
	for path, snap := range current {
		prev, ok := p.state[path]
		switch {
		case !ok:
			p.emit(FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case prev != snap:
			p.emit(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range p.state {
		if _, ok := current[path]; !ok {
			p.emit(FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
	p.state = current
}
