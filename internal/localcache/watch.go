package localcache

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// selfWriteWindow is how long after one of our own saves we ignore events on
// the cache file.
const selfWriteWindow = 500 * time.Millisecond

// Watch reports external writes to the cache file until ctx is cancelled.
// Another process replacing the cache counts as a local edit, so the sync
// engine re-imports the file and polls. Our own saves are filtered out via
// the self-write window.
func (c *Cache) Watch(ctx context.Context, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: atomic renames replace the file inode, so a
	// watch on the file itself would go stale after the first save.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(c.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if c.wroteRecently(selfWriteWindow) {
					continue
				}
				logger.Debug("local cache changed externally", "path", c.path)
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("cache watcher error", "error", err)
			}
		}
	}()

	return nil
}
