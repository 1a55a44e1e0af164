// Package watch re-runs a function when files below a directory change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lburgazzoli/kpipe/pkg/util/logger"
)

const DefaultDebounce = 500 * time.Millisecond

// Options configures Run.
type Options struct {
	// Dir is watched recursively; hidden directories are skipped.
	Dir string

	// Debounce is the quiet period after the last event before fn runs.
	Debounce time.Duration

	// Ready, when set, is closed once the watcher is in place and the
	// initial run completed.
	Ready chan<- struct{}
}

// Run calls fn once, then again every time files below opts.Dir change,
// until ctx is done. Errors returned by fn are logged and do not stop
// the watcher.
func Run(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	l := logger.FromContext(ctx)

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	if err := addRecursive(watcher, opts.Dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", opts.Dir, err)
	}

	run(ctx, l, fn, "initial")

	if opts.Ready != nil {
		close(opts.Ready)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	var trigger string

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !relevant(event) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}

			trigger = event.Name

			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
			} else {
				timer.Reset(opts.Debounce)
			}

			fire = timer.C

		case <-fire:
			fire = nil
			run(ctx, l, fn, trigger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			l.Error("watcher error", zap.Error(err))
		}
	}
}

func run(ctx context.Context, l *zap.Logger, fn func(ctx context.Context) error, trigger string) {
	start := time.Now()

	if err := fn(ctx); err != nil {
		l.Error("run failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}

	l.Info("run completed", zap.String("trigger", trigger), zap.Duration("duration", time.Since(start)))
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

// relevant drops chmod-only events, hidden files and editor leftovers.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	return !strings.HasPrefix(name, ".") &&
		!strings.HasPrefix(name, "#") &&
		!strings.HasSuffix(name, "~") &&
		!strings.HasSuffix(name, ".swp")
}
