package scene

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/milk9111/simrig/logging"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a watched tree must stay quiet before a
// change is reported.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports changes to scene and script files. Bursts of writes are
// collapsed into one event per file once the tree has been quiet for the
// debounce interval.
type Watcher struct {
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration

	events  chan []string
	errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches dirs. A zero debounce uses DefaultDebounce.
func NewWatcher(log *zap.Logger, debounce time.Duration, dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fw,
		log:      logging.OrNop(log).Named("watch"),
		debounce: debounce,
		events:   make(chan []string, 4),
		errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Events delivers the sorted set of files changed in one burst.
func (w *Watcher) Events() <-chan []string { return w.events }
func (w *Watcher) Errors() <-chan error { return w.errors }

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.events)
		close(w.errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !Watched(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			clear(pending)
			w.log.Debug("change detected", zap.Strings("files", names))
			select {
			case w.events <- names:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.log.Warn("dropping watch error", zap.Error(err))
			}
		case <-w.closeCh:
			return
		}
	}
}

// Watched reports whether path is a scene or script file.
func Watched(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".tengo":
		return true
	}
	return false
}
