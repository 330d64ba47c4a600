package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchDir reports writes and creations of files directly inside dir on
// pathChan until ctx is done. Watcher errors are handed to sendWarning.
func WatchDir(ctx context.Context, dir string, pathChan chan<- string, sendWarning func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("can't watch '%s': %w", dir, err)
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
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				slog.Debug("watch event", "op", event.Op.String(), "path", event.Name)
				select {
				case pathChan <- filepath.Base(event.Name):
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				sendWarning(fmt.Errorf("watch error: %w", err))
			}
		}
	}()
	return nil
}
