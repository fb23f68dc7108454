package settings

import "time"

// Debouncer coalesces bursts of calls into one, driven by frame time rather
// than wall clock so it advances only when the main loop ticks. It is not
// safe for concurrent use; it belongs to the tick goroutine.
type Debouncer struct {
	window  time.Duration
	elapsed time.Duration
	fn      func()
}

// NewDebouncer creates a debouncer that fires window after the last call.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Debounce schedules fn. Rapid successive calls restart the window and
// replace the pending function.
func (d *Debouncer) Debounce(fn func()) {
	d.fn = fn
	d.elapsed = 0
}

// Advance moves the window forward by dt and runs the pending function if
// the window has elapsed. It reports whether the function ran.
func (d *Debouncer) Advance(dt time.Duration) bool {
	if d.fn == nil {
		return false
	}
	if dt > 0 {
		d.elapsed += dt
	}
	if d.elapsed < d.window {
		return false
	}
	fn := d.fn
	d.Cancel()
	fn()
	return true
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.fn = nil
	d.elapsed = 0
}

// Immediate runs fn now and cancels any pending call.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool { return d.fn != nil }

// Window returns the configured quiet period.
func (d *Debouncer) Window() time.Duration { return d.window }
