package seed

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vouch/internal/backend"
)

const debounce = 200 * time.Millisecond

// Watch re-syncs the seed file whenever it changes on disk until ctx is
// cancelled. onApplied (if non-nil) runs after every sync that wrote rows.
//
// The parent directory is watched rather than the file itself so editors that
// save by rename keep being tracked.
func Watch(ctx context.Context, seeder backend.Seeder, path string, logger *slog.Logger, onApplied func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("seed watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("seed watcher: stopped")
			return nil

		case <-fire:
			applied, err := Sync(ctx, seeder, abs, logger)
			if err != nil {
				logger.Warn("seed watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			if applied && onApplied != nil {
				onApplied()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("seed watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
