package settings

import (
	"fmt"
	"time"

	"stagehand/internal/events"
	"stagehand/internal/logging"
)

// DefaultDebounce is the quiet period before a burst of changes is written.
const DefaultDebounce = 500 * time.Millisecond

// Backend is where Sync persists to.
type Backend interface {
	Saver
	FileReader
}

// Sync keeps the store, the live subsystems and the file consistent.
//
// Every change is applied to its subsystem on the tick it is made and
// written to disk once the debounce window passes with no further change.
// Writes run on a background goroutine; Tick never blocks on disk. Memory
// always wins: an external edit to the file marks the store dirty so the
// next write restores the in-memory values.
type Sync struct {
	store      *Store
	backend    Backend
	subsystems Subsystems
	queue      *events.Queue
	debounce   *Debouncer
	writer     *writer
	source     ChangeSource
	closed     bool
}

// NewSync wires a store to its backend and subsystems. Events are pushed to
// queue; a nil queue drops them.
func NewSync(store *Store, backend Backend, subsystems Subsystems, queue *events.Queue, window time.Duration) *Sync {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Sync{
		store:      store,
		backend:    backend,
		subsystems: subsystems,
		queue:      queue,
		debounce:   NewDebouncer(window),
		writer:     newWriter(backend),
	}
}

// Attach connects a source of external edits.
func (s *Sync) Attach(source ChangeSource) { s.source = source }

// Store returns the backing store.
func (s *Sync) Store() *Store { return s.store }

// Pending reports whether a write is scheduled or running.
func (s *Sync) Pending() bool { return s.debounce.Pending() || s.writer.busy() }

// Set validates and stores a value, applies it to its subsystem and
// schedules a write. On error nothing changes.
func (s *Sync) Set(key Key, value any) error {
	snap, err := s.store.Set(key, value)
	if err != nil {
		logging.SettingsWarn("rejected %s = %v: %v", key, value, err)
		return err
	}
	s.apply(key, snap)
	s.debounce.Debounce(s.persist)
	return nil
}

// Reset restores defaults, applies them and schedules a write.
func (s *Sync) Reset() {
	s.store.Replace(Defaults())
	s.store.MarkDirty()
	s.ApplyAll()
	s.debounce.Debounce(s.persist)
}

// ApplyAll pushes every current value to its subsystem. Used at boot.
func (s *Sync) ApplyAll() {
	snap := s.store.Get()
	for _, key := range Keys {
		s.apply(key, snap)
	}
}

func (s *Sync) apply(key Key, snap Snapshot) {
	if err := s.subsystems.Apply(key, snap); err != nil {
		logging.SettingsError("failed to apply %s: %v", key, err)
		return
	}
	logging.SettingsDebug("applied %s = %s", key, snap.Format(key))
	s.push(events.SettingsApplied{Key: key.String()})
}

// Tick advances the debounce by dt, collects finished writes and handles
// external edits. It never waits on disk.
func (s *Sync) Tick(dt time.Duration) {
	if s.closed {
		return
	}
	if res, ok := s.writer.poll(); ok {
		s.handleResult(res)
	}
	s.drainExternal()
	s.debounce.Advance(dt)
}

// persist hands the current snapshot to the writer if memory is ahead.
func (s *Sync) persist() {
	if !s.store.Dirty().Dirty {
		return
	}
	snap, gen := s.store.Capture()
	s.writer.submit(writeRequest{snap: snap, gen: gen})
}

func (s *Sync) handleResult(res writeResult) {
	if res.err != nil {
		logging.PersistenceError("settings write failed, will retry: %v", res.err)
		s.push(events.SettingsPersisted{Err: res.err})
		s.debounce.Debounce(s.persist)
		return
	}
	s.store.MarkPersisted(res.gen)
	logging.PersistenceDebug("settings persisted (generation %d)", res.gen)
	s.push(events.SettingsPersisted{})
}

func (s *Sync) drainExternal() {
	if s.source == nil {
		return
	}
	select {
	case edit := <-s.source.Changes():
		s.handleExternal(edit)
	default:
	}
}

func (s *Sync) handleExternal(edit ExternalEdit) {
	current := s.store.Get()
	if edit.Err == nil && edit.Snapshot == current {
		return
	}
	if edit.Err != nil {
		logging.SettingsWarn("settings file changed externally and is unusable (%v); restoring in-memory values", edit.Err)
	} else {
		logging.SettingsWarn("settings file edited externally; in-memory values win and will be rewritten")
	}
	s.store.MarkDirty()
	s.debounce.Debounce(s.persist)
}

// Flush writes any unsaved change synchronously and stops the background
// writer. Call it once at shutdown.
func (s *Sync) Flush() error {
	if s.closed {
		return nil
	}
	s.debounce.Cancel()
	if res, ok := s.writer.wait(); ok {
		s.handleResult(res)
		s.debounce.Cancel()
	}
	s.writer.close()
	s.closed = true

	if !s.store.Dirty().Dirty {
		return nil
	}
	snap, gen := s.store.Capture()
	if err := s.backend.Save(snap); err != nil {
		s.push(events.SettingsPersisted{Err: err})
		return fmt.Errorf("final settings write: %w", err)
	}
	s.store.MarkPersisted(gen)
	s.push(events.SettingsPersisted{})
	return nil
}

func (s *Sync) push(e events.Event) {
	if s.queue != nil {
		s.queue.Push(e)
	}
}
