package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stagehand/internal/logging"
)

// ExternalEdit is what the watcher saw in the settings file after it
// changed on disk. Err is set when the file was removed or unreadable.
type ExternalEdit struct {
	Snapshot Snapshot
	Err      error
	At       time.Time
}

// ChangeSource delivers external edits to Sync.
type ChangeSource interface {
	Changes() <-chan ExternalEdit
}

// FileReader decodes the current file contents.
type FileReader interface {
	Read() (Snapshot, error)
}

// Watcher watches the settings file for edits made by something other than
// this process. It watches the parent directory so atomic renames by editors
// and by Persistence itself are seen.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	reader      FileReader
	changes     chan ExternalEdit
	lastEvent   time.Time
	pending     bool
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for tests and debugging.
type WatcherStats struct {
	Events    int
	Delivered int
	Errors    int
}

// NewWatcher creates a watcher for path. reader decodes the file once the
// edits settle.
func NewWatcher(path string, reader FileReader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        filepath.Clean(path),
		reader:      reader,
		changes:     make(chan ExternalEdit, 1),
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce changes how long the file must be quiet before it is read.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceDur = d
}

// Changes returns the channel of settled edits. It holds at most one
// undelivered edit; newer edits replace it.
func (w *Watcher) Changes() <-chan ExternalEdit { return w.changes }

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.WatcherWarn("failed to create settings dir %s: %v", dir, err)
	}
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watcher("watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.WatcherWarn("error closing watcher: %v", err)
	}
	logging.Watcher("stopped")
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatcherWarn("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	logging.WatcherDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.lastEvent = time.Now()
	w.pending = true
	w.mu.Unlock()
}

func (w *Watcher) processDebounced() {
	w.mu.Lock()
	if !w.pending || time.Since(w.lastEvent) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	snap, err := w.reader.Read()
	edit := ExternalEdit{Snapshot: snap, Err: err, At: time.Now()}

	// Replace an undelivered edit with the newer one.
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- edit:
		w.mu.Lock()
		w.stats.Delivered++
		w.mu.Unlock()
	default:
	}
}
