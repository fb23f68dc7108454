// Package events defines the outbound notifications consumed by rendering,
// UI and audio collaborators, and the single-drain queue that carries them
// from producers to the per-tick consumer.
package events

import "sync"

// Event is one outbound notification. PhaseChanged lives in
// internal/lifecycle next to the Phase type it carries.
type Event interface {
	// Kind names the event for logs and audit records.
	Kind() string
}

// BundleProgress reports a rise in a bundle's load fraction.
type BundleProgress struct {
	Bundle   string
	Fraction float64
}

func (BundleProgress) Kind() string { return "bundle_progress" }

// BundleReady is emitted once when every required asset is loaded.
type BundleReady struct {
	Bundle string
}

func (BundleReady) Kind() string { return "bundle_ready" }

// BundleLoadFailed is emitted once for the first required asset that failed.
type BundleLoadFailed struct {
	Bundle string
	Asset  string
}

func (BundleLoadFailed) Kind() string { return "bundle_load_failed" }

// SettingsApplied is emitted after a setting reached its live subsystem.
type SettingsApplied struct {
	Key string
}

func (SettingsApplied) Kind() string { return "settings_applied" }

// SettingsPersisted reports the outcome of one settings write. Err is nil on success.
type SettingsPersisted struct {
	Err error
}

func (SettingsPersisted) Kind() string { return "settings_persisted" }

// OK reports whether the write succeeded.
func (e SettingsPersisted) OK() bool { return e.Err == nil }

// Queue is a FIFO of events drained once per tick. Push is safe from any
// goroutine; Drain is called by the tick owner only.
type Queue struct {
	mu      sync.Mutex
	pending []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
}

// Drain returns every pending event in push order and empties the queue.
// Events pushed while the caller processes the returned slice land in the
// next drain.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
