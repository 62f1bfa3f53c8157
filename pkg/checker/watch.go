package checker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jyasuu/jcheck/pkg/log"
)

// debounceInterval coalesces bursts of filesystem events (editors often emit
// several writes per save) into one re-evaluation.
const debounceInterval = 100 * time.Millisecond

// Event carries a fresh result set after a watched document changed, or a
// watcher error.
type Event struct {
	Err     error
	Results []Result
}

// Subscribe registers a channel to receive [Event]s emitted by
// [Runner.RunOnEvent]. Not safe to call after RunOnEvent has started.
func (r *Runner) Subscribe(ch chan<- Event) {
	r.listeners = append(r.listeners, ch)
}

// watchDocuments registers every rule's document with the watcher. Parent
// directories are watched rather than the files themselves, so documents that
// are replaced (rename-over-write) stay watched.
func (r *Runner) watchDocuments() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	r.watcher = watcher

	for _, ru := range r.rules {
		abs, err := filepath.Abs(ru.JSONFile)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", ru.JSONFile, err)
		}

		r.watchedFiles[abs] = ru.JSONFile

		dir := filepath.Dir(abs)
		if _, ok := r.watchedDirs[dir]; ok {
			continue
		}

		err = r.watcher.Add(dir)
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}

		r.watchedDirs[dir] = struct{}{}
	}

	slog.Debug("added file watchers",
		slog.Int("files", len(r.watchedFiles)),
		slog.Int("dirs", len(r.watchedDirs)),
	)

	return nil
}

// RunOnEvent listens for filesystem events on the watched documents and
// re-evaluates the rule set in response. Results should be collected via
// [Runner.Subscribe]. It returns when the watcher is closed.
func (r *Runner) RunOnEvent() {
	pending := map[string]struct{}{}

	var timerC <-chan time.Time

	for {
		select {
		case evt, ok := <-r.watcher.Events:
			if !ok {
				return
			}

			// Ignore events that are not related to file content changes.
			if evt.Has(fsnotify.Chmod) {
				continue
			}

			if _, watched := r.watchedFiles[evt.Name]; !watched {
				continue
			}

			pending[evt.Name] = struct{}{}
			if timerC == nil {
				timerC = time.After(debounceInterval)
			}

		case <-timerC:
			ctx := context.Background()
			logger := log.WithContext(ctx)

			for abs := range pending {
				r.store.Invalidate(r.watchedFiles[abs])
				logger.DebugContext(ctx, "document changed", slog.String("file", r.watchedFiles[abs]))
			}

			clear(pending)

			timerC = nil

			r.broadcast(Event{Results: r.RunContext(ctx)})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}

			r.broadcast(Event{Err: err})
		}
	}
}

func (r *Runner) broadcast(evt Event) {
	for _, ch := range r.listeners {
		ch <- evt
	}
}

// Close releases the filesystem watcher, if any. [Runner.RunOnEvent] returns
// after Close.
func (r *Runner) Close() {
	if r.watcher == nil {
		return
	}

	err := r.watcher.Close()
	if err != nil {
		slog.Error("close watcher", slog.Any("err", err))
	}
}
