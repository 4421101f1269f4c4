package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"transmission-api/internal/common/logger"
)

// Watch starts watching the catalog file and calls onChange after every
// write, create, rename or remove of it. The watch is registered before
// Watch returns; it stops when ctx is done or stop is called.
func (p *FileProvider) Watch(ctx context.Context, onChange func(), log logger.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Editors often replace the file, so watch the directory.
	target := filepath.Clean(p.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				log.Info("catalog file changed", map[string]interface{}{"path": target, "op": ev.Op.String()})
				onChange()
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("catalog watcher error", map[string]interface{}{"error": werr.Error()})
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
