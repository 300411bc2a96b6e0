package gitref

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"unified/logger"
)

// watchDebounce coalesces the burst of fs events a single git operation
// produces into one notification.
const watchDebounce = 200 * time.Millisecond

// Watcher observes a repository's .git directory and reports when the
// reference state may have moved (commit, checkout, stage). Consumers use
// this to invalidate cached snapshots and refresh annotations.
type Watcher struct {
	fw       *fsnotify.Watcher
	onChange func()
	done     chan struct{}
}

// Watch starts watching gitDir. onChange is called from the watcher
// goroutine after each debounced burst of events.
func Watch(gitDir string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// HEAD and index live directly in gitDir; branch tips under refs/heads.
	// fsnotify is non-recursive, so each dir is added explicitly.
	if err := fw.Add(gitDir); err != nil {
		fw.Close()
		return nil, err
	}
	headsDir := filepath.Join(gitDir, "refs", "heads")
	if _, err := os.Stat(headsDir); err == nil {
		if err := fw.Add(headsDir); err != nil {
			logger.Warn("gitref: cannot watch %s: %v", headsDir, err)
		}
	}

	w := &Watcher{
		fw:       fw,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("gitref: fs event %s", ev)
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				fire = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.onChange()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("gitref: watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

// relevant filters the .git noise down to files whose change implies the
// reference state moved.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	switch name {
	case "HEAD", "index", "ORIG_HEAD", "MERGE_HEAD", "packed-refs":
		return true
	}
	// Branch tip files under refs/heads.
	return filepath.Base(filepath.Dir(ev.Name)) == "heads"
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
