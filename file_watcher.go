package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/mudler/xlog"
)

// FileWatcher emits a file's contents on start and after every write.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a FileWatcher for path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// Path returns the watched file path.
func (w *FileWatcher) Path() string {
	return w.path
}

// Watch starts an fsnotify watch on the file. The current contents are
// emitted first so a Feed starts from the file's present state.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", w.path, err)
	}

	out := make(chan []byte)

	emit := func() bool {
		data, err := os.ReadFile(w.path)
		if err != nil {
			xlog.Warn("file watcher read failed", "path", w.path, "error", err)
			return true
		}
		select {
		case out <- data:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		defer watcher.Close()

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !emit() {
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				xlog.Warn("file watcher error", "path", w.path, "error", err)
			}
		}
	}()

	return out, nil
}
