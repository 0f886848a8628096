// Package watcher turns file system changes under configured sources into
// incremental index runs.
//
// A SourceWatcher watches every source directory with fsnotify, falling
// back to polling where fsnotify is unavailable (network mounts, some
// container volumes). Events outside a source's coverage are dropped and
// the rest are debounced into bursts. Run calls the index function once per
// settled burst:
//
//	w, err := watcher.New(sources, watcher.Options{Debounce: 2 * time.Second})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	return watcher.Run(ctx, w, func(ctx context.Context, events []watcher.FileEvent) error {
//	    _, err := mgr.IncrementalIndex(ctx, sources, agentID)
//	    return err
//	})
package watcher
