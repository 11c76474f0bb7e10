package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reuvenpo/dogging"
)

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	onLoad  func([]dogging.Option, error)
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	stopped bool
}

// Watch loads path once immediately, then re-loads it on every change,
// reporting each result through onLoad. A reload that fails validation is
// reported as an error and the previous options stay in effect at the
// caller's discretion; the watcher itself keeps running.
//
// The parent directory is watched rather than the file, so editors that
// replace the file (rename-over-write) keep triggering reloads.
func Watch(path string, onLoad func([]dogging.Option, error)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		path:   path,
		fs:     fs,
		onLoad: onLoad,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.load()
	go w.run()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	return w.fs.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	// Editors emit bursts of events per save; collapse them.
	var pending bool
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				pending = true
				debounce.Reset(100 * time.Millisecond)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.onLoad(nil, err)

		case <-debounce.C:
			pending = false
			w.load()
		}
	}
}

func (w *Watcher) load() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.onLoad(nil, err)
		return
	}
	w.onLoad(Load(data))
}
