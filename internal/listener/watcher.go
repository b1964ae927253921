package listener

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"dlscan/internal/ocr"
)

// watch emits supported files created or written directly inside dir. A
// file is emitted once it has had no events for settle, so half-written
// uploads are not picked up.
func watch(ctx context.Context, dir string, settle time.Duration, logger *slog.Logger) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer w.Close()

		tick := time.NewTicker(settle / 2)
		defer tick.Stop()
		pending := map[string]time.Time{}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && candidateFile(e.Name) {
					pending[e.Name] = time.Now()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("inbox watcher error", "error", err)
			case now := <-tick.C:
				for path, last := range pending {
					if now.Sub(last) < settle {
						continue
					}
					delete(pending, path)
					select {
					case out <- path:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func candidateFile(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && ocr.Supported(base)
}
