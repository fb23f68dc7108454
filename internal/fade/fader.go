// Package fade gates phase changes behind a visual fade. The fader asks the
// controller for the change only after the screen is fully covered, and only
// uncovers the screen once the controller reports the new phase as active.
package fade

import (
	"errors"
	"fmt"
	"time"

	"stagehand/internal/lifecycle"
	"stagehand/internal/logging"
)

var (
	// ErrFaderBusy is returned by FadeTo when a fade is already running.
	ErrFaderBusy = errors.New("fader busy")
	// ErrPreempted is recorded when the Error phase was entered while a
	// fade was running; the fade then uncovers Error instead of leaving it.
	ErrPreempted = errors.New("fade pre-empted by error phase")
)

// State is the fader's position in its cycle.
type State int

const (
	Idle State = iota
	FadingOut
	AwaitingPhaseChange
	FadingIn
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case FadingOut:
		return "FadingOut"
	case AwaitingPhaseChange:
		return "AwaitingPhaseChange"
	case FadingIn:
		return "FadingIn"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PhaseRequester is the slice of the controller the fader needs.
type PhaseRequester interface {
	RequestTransition(target lifecycle.Phase) error
	Current() lifecycle.Phase
}

// Fader runs Idle -> FadingOut -> AwaitingPhaseChange -> FadingIn -> Idle.
// All timing is driven by the delta passed to Tick.
type Fader struct {
	ctrl PhaseRequester

	state    State
	target   lifecycle.Phase
	origin   lifecycle.Phase
	duration time.Duration
	// Remaining time in the current timed state (delta-based)
	remaining time.Duration
	rejected  error
}

// New creates an idle fader bound to ctrl.
func New(ctrl PhaseRequester) *Fader {
	return &Fader{ctrl: ctrl}
}

// State returns the current fade state.
func (f *Fader) State() State { return f.state }

// Target returns the phase of the running fade. Meaningless when Idle.
func (f *Fader) Target() lifecycle.Phase { return f.target }

// Busy reports whether a fade is in progress.
func (f *Fader) Busy() bool { return f.state != Idle }

// LastRejection returns the error of the most recent rejected transition
// request, or nil.
func (f *Fader) LastRejection() error { return f.rejected }

// FadeTo starts fading out towards target. Each half of the fade lasts
// duration. Only valid while Idle.
func (f *Fader) FadeTo(duration time.Duration, target lifecycle.Phase) error {
	if f.state != Idle {
		return fmt.Errorf("%w: %s towards %s", ErrFaderBusy, f.state, f.target)
	}
	if duration < 0 {
		duration = 0
	}
	f.state = FadingOut
	f.target = target
	f.origin = f.ctrl.Current()
	f.duration = duration
	f.remaining = duration
	f.rejected = nil
	logging.FadeDebug("fade out towards %s over %v", target, duration)
	return nil
}

// Tick advances the fade by dt. A zero-length fade still takes one tick per
// half so the handshake with the controller is always observed.
func (f *Fader) Tick(dt time.Duration) {
	switch f.state {
	case Idle:
		return

	case FadingOut:
		f.remaining -= dt
		if f.remaining > 0 {
			return
		}
		f.state = AwaitingPhaseChange
		if f.ctrl.Current() == lifecycle.Error && f.origin != lifecycle.Error {
			f.rejected = fmt.Errorf("%w: towards %s", ErrPreempted, f.target)
			logging.FadeWarn("error phase entered while fading to %s, showing it instead", f.target)
			f.beginFadeIn()
			return
		}
		if err := f.ctrl.RequestTransition(f.target); err != nil {
			f.rejected = err
			logging.FadeWarn("transition to %s rejected, fading back in: %v", f.target, err)
			f.beginFadeIn()
			return
		}
		// The handshake is checked from the next tick on; the new phase
		// may need a frame to spawn its content.

	case AwaitingPhaseChange:
		// Error pre-empts the target and must not stay hidden.
		if cur := f.ctrl.Current(); cur == f.target || cur == lifecycle.Error {
			f.beginFadeIn()
		}

	case FadingIn:
		f.remaining -= dt
		if f.remaining <= 0 {
			f.state = Idle
			f.remaining = 0
			logging.FadeDebug("fade to %s complete", f.target)
		}
	}
}

func (f *Fader) beginFadeIn() {
	f.state = FadingIn
	f.remaining = f.duration
}

// Alpha is the cover opacity in [0,1]: 0 shows the scene, 1 hides it.
func (f *Fader) Alpha() float64 {
	switch f.state {
	case FadingOut:
		if f.duration <= 0 {
			return 1
		}
		return clamp01(1 - float64(f.remaining)/float64(f.duration))
	case AwaitingPhaseChange:
		return 1
	case FadingIn:
		if f.duration <= 0 {
			return 0
		}
		return clamp01(float64(f.remaining) / float64(f.duration))
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
