package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the coalescing delay applied to raw events before
// classification, so one logical save (write-then-rename editor patterns
// included) reaches subscribers as a single notification.
const DefaultDebounce = 500 * time.Millisecond

// Run starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. Raw events are batched per path
// for the debounce window, classified, and published to the notifier.
//
// New directories created at runtime are automatically added to the watch
// list, and entity files already inside them are reported as Added.
func Run(ctx context.Context, root string, debounce time.Duration, classifier *Classifier, notifier *Notifier, logger *slog.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watch: started", slog.String("root", root), slog.Duration("debounce", debounce))

	// pending accumulates raw ops per path until that path's debounce
	// deadline passes. A single timer is armed to the earliest deadline.
	pending := make(map[string][]fsnotify.Op)
	deadlines := make(map[string]time.Time)

	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	rearm := func() {
		var earliest time.Time
		for _, d := range deadlines {
			if earliest.IsZero() || d.Before(earliest) {
				earliest = d
			}
		}
		if earliest.IsZero() {
			return
		}
		wait := time.Until(earliest)
		if wait < 0 {
			wait = 0
		}
		if flushTimer == nil {
			flushTimer = time.NewTimer(wait)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(wait)
		}
	}

	flushDue := func() {
		now := time.Now()
		for p, deadline := range deadlines {
			if deadline.After(now) {
				continue
			}
			ops := pending[p]
			delete(pending, p)
			delete(deadlines, p)
			for _, ev := range classifier.ClassifyBatch(p, ops) {
				logger.Debug("watch: classified",
					slog.String("kind", string(ev.Kind)),
					slog.String("id", ev.ID),
					slog.String("transition", string(ev.Transition)))
				notifier.Publish(ev)
			}
		}
		rearm()
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-flushCh:
			flushDue()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories join the watch list immediately. Files
			// already inside are queued as Create ops through the same
			// pending map as live events, so a file that also delivers
			// its own Create still debounces into one notification.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watch: watching new dir", slog.String("path", ev.Name))
					}
					for _, f := range filesUnder(ev.Name) {
						pending[f] = append(pending[f], fsnotify.Create)
						deadlines[f] = time.Now().Add(debounce)
					}
					rearm()
					continue
				}
			}

			pending[ev.Name] = append(pending[ev.Name], ev.Op)
			deadlines[ev.Name] = time.Now().Add(debounce)
			rearm()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// filesUnder returns the files already present under a newly watched
// directory, for queueing as synthetic Create ops.
func filesUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
