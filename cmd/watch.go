package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oakwood-commons/listx/internal/debounce"
	"github.com/oakwood-commons/listx/pkg/logger"
)

// watchSettle collapses the burst of events an editor save produces.
var watchSettle = 150 * time.Millisecond

// watchSource calls onChange after path is written or replaced, until ctx is
// done. The parent directory is watched so atomic renames are seen.
func watchSource(ctx context.Context, path string, onChange func()) error {
	lgr := logger.FromContext(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	settle := debounce.New(watchSettle, nil, func(struct{}) { onChange() })
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			lgr.V(1).Info("source changed", "path", path, "op", ev.Op.String())
			settle.Call(struct{}{})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			lgr.Error(err, "watch error", "path", path)
		}
	}
}
