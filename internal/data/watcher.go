package data

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow is how long the watcher waits for further file events
// before triggering a reload, so a burst of writes coalesces into one load.
const debounceWindow = 100 * time.Millisecond

// fileChange is one filesystem change on a recognized data file.
type fileChange struct {
	path string
	op   fsnotify.Op
	at   time.Time
}

// eventType maps the filesystem operation to the manager event vocabulary.
func (c fileChange) eventType() EventType {
	switch {
	case c.op.Has(fsnotify.Create):
		return EventFileAdded
	case c.op.Has(fsnotify.Remove), c.op.Has(fsnotify.Rename):
		return EventFileRemoved
	default:
		return EventFileChanged
	}
}

// watcher watches the data directory for changes to the recognized dataset
// files and delivers debounced batches to the manager. Events for other
// files in the directory are ignored.
type watcher struct {
	dir        string
	recognized map[string]bool
	fw         *fsnotify.Watcher
	onBatch    func([]fileChange)
	onError    func(error)

	changes  chan fileChange
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

func newWatcher(dir string, files []string, onBatch func([]fileChange), onError func(error)) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	recognized := make(map[string]bool, len(files))
	for _, f := range files {
		recognized[f] = true
	}

	return &watcher{
		dir:        dir,
		recognized: recognized,
		fw:         fw,
		onBatch:    onBatch,
		onError:    onError,
		changes:    make(chan fileChange, 64),
		done:       make(chan struct{}),
	}, nil
}

// start begins watching the data directory. Spawns the event processor and
// the debouncer; both exit on stop or context cancellation.
func (w *watcher) start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.fw.Add(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// stop shuts the watcher down. Safe to call more than once.
func (w *watcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fw.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

func (w *watcher) active() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// processEvents filters raw fsnotify events down to recognized data files
// and forwards them to the debounce channel.
func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.recognized[filepath.Base(event.Name)] {
				continue
			}
			change := fileChange{path: event.Name, op: event.Op, at: time.Now()}
			select {
			case w.changes <- change:
			default:
				// Buffer full; the pending batch already triggers a full
				// reload, so dropping the event loses nothing.
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// debounceLoop batches changes and calls the handler once the debounce
// window passes without further events.
func (w *watcher) debounceLoop(ctx context.Context) {
	var batch []fileChange
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 && w.onBatch != nil {
			w.onBatch(dedupeChanges(batch))
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case <-timerC:
			flush()
		}
	}
}

// dedupeChanges keeps the most recent change per path, preserving order of
// first appearance.
func dedupeChanges(changes []fileChange) []fileChange {
	seen := make(map[string]int, len(changes))
	result := make([]fileChange, 0, len(changes))

	for _, change := range changes {
		if idx, ok := seen[change.path]; ok {
			result[idx] = change
		} else {
			seen[change.path] = len(result)
			result = append(result, change)
		}
	}
	return result
}
