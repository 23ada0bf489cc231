package watcher

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the download directory and runs a trigger once new
// archives have settled.
type Watcher struct {
	dir     string
	ext     string
	watcher *fsnotify.Watcher
	logger  *log.Logger
	trigger func()

	runMu sync.Mutex

	timerMu  sync.Mutex
	timer    *time.Timer
	debounce time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New starts watching dir (not its subdirectories) for files with extension
// ext. trigger runs debounce after the last matching event; runs never
// overlap.
func New(dir, ext string, debounce time.Duration, trigger func(), logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		dir:      dir,
		ext:      strings.ToLower(ext),
		watcher:  fw,
		logger:   logger,
		trigger:  trigger,
		debounce: debounce,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the watcher. A trigger already running is not interrupted.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.timerMu.Unlock()

		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

// RunNow runs the trigger immediately, waiting for any trigger in progress.
func (w *Watcher) RunNow() {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	w.trigger()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
		return
	}
	if strings.ToLower(filepath.Ext(event.Name)) != w.ext {
		return
	}
	w.schedule()
}

func (w *Watcher) schedule() {
	select {
	case <-w.done:
		return
	default:
	}

	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}

		w.runMu.Lock()
		w.trigger()
		w.runMu.Unlock()

		w.timerMu.Lock()
		if w.timer == timer {
			w.timer = nil
		}
		w.timerMu.Unlock()
	})

	w.timer = timer
}
