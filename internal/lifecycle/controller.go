package lifecycle

import (
	"errors"
	"fmt"
	"sync/atomic"

	"stagehand/internal/events"
	"stagehand/internal/logging"
)

// ErrBootConsumed is returned when boot overrides arrive after the controller
// has already left Booting.
var ErrBootConsumed = errors.New("boot overrides already consumed")

// BootOverrides is supplied once by the external initializer (flags or
// environment) before the first tick.
type BootOverrides struct {
	// StartPhase, when set, replaces the default first phase. InGame means
	// "load content and go straight in", so it starts in Loading.
	StartPhase *Phase
	// SkipIntro skips Splash and starts in MainMenu.
	SkipIntro bool
}

// AssetLoadError is the failure cause recorded when a required asset fails.
type AssetLoadError struct {
	Bundle string
	Asset  string
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("required asset %q of bundle %s failed to load", e.Asset, e.Bundle)
}

// Controller is the authoritative phase state machine. It is the only writer
// of the current phase; every other component reads it through Current.
type Controller struct {
	current     atomic.Int32
	exit        atomic.Bool
	queue       *events.Queue
	subscribers []func(PhaseChanged)

	boot        BootOverrides
	started     bool
	awaitBundle string
	lastFailure error
}

// NewController creates a controller in Booting that publishes PhaseChanged
// events onto queue.
func NewController(queue *events.Queue) *Controller {
	if queue == nil {
		queue = events.NewQueue()
	}
	c := &Controller{queue: queue}
	c.current.Store(int32(Booting))
	return c
}

// Current returns the active phase. It never blocks.
func (c *Controller) Current() Phase {
	return Phase(c.current.Load())
}

// Subscribe registers a listener called synchronously after every committed
// transition, in registration order.
func (c *Controller) Subscribe(fn func(PhaseChanged)) {
	c.subscribers = append(c.subscribers, fn)
}

// ApplyBoot records the boot overrides. It must be called before Start.
func (c *Controller) ApplyBoot(o BootOverrides) error {
	if c.started {
		return ErrBootConsumed
	}
	c.boot = o
	return nil
}

// Start performs the first transition out of Booting using the boot
// overrides, which are consumed by this call.
func (c *Controller) Start() (Phase, error) {
	if c.started {
		return c.Current(), ErrBootConsumed
	}
	c.started = true
	target := c.resolveStart()
	c.boot = BootOverrides{}
	if err := c.RequestTransition(target); err != nil {
		return c.Current(), err
	}
	logging.Lifecycle("started in %s", target)
	return target, nil
}

func (c *Controller) resolveStart() Phase {
	if c.boot.StartPhase != nil {
		switch p := *c.boot.StartPhase; p {
		case Splash, MainMenu, Loading:
			return p
		case InGame:
			return Loading
		default:
			logging.LifecycleWarn("start phase %s is not a valid boot target, ignoring", p)
		}
	}
	if c.boot.SkipIntro {
		return MainMenu
	}
	return Splash
}

// RequestTransition moves to target when (current, target) is in the
// allow-list. A rejected request has no side effects besides a log line.
func (c *Controller) RequestTransition(target Phase) error {
	from := c.Current()
	if !target.Valid() || !CanTransition(from, target) {
		err := &InvalidTransitionError{From: from, To: target}
		logging.LifecycleError("%v (programming error, staying in %s)", err, from)
		return err
	}

	c.current.Store(int32(target))
	if from == Error {
		c.lastFailure = nil
	}
	if from == Loading {
		c.awaitBundle = ""
	}
	logging.Lifecycle("phase %s -> %s", from, target)

	ev := PhaseChanged{Old: from, New: target}
	c.queue.Push(ev)
	for _, fn := range c.subscribers {
		fn(ev)
	}
	return nil
}

// Fail moves to Error from any other phase and records cause. Calling Fail
// while already in Error only replaces the recorded cause.
func (c *Controller) Fail(cause error) {
	c.lastFailure = cause
	if c.Current() == Error {
		logging.LifecycleWarn("additional failure while in Error: %v", cause)
		return
	}
	logging.LifecycleError("unrecoverable failure: %v", cause)
	if err := c.RequestTransition(Error); err != nil {
		// Error is reachable from every phase but itself.
		logging.LifecycleError("could not enter Error: %v", err)
	}
}

// LastFailure returns the cause of the current Error phase, or nil.
func (c *Controller) LastFailure() error {
	return c.lastFailure
}

// AwaitBundle tells the controller which bundle gates Loading -> InGame.
// Signals for any other bundle are ignored.
func (c *Controller) AwaitBundle(id string) {
	c.awaitBundle = id
}

// Observe consumes bundle signals drained from the event queue.
func (c *Controller) Observe(e events.Event) {
	switch ev := e.(type) {
	case events.BundleReady:
		if !c.gates(ev.Bundle) {
			return
		}
		if err := c.RequestTransition(InGame); err != nil {
			logging.LifecycleWarn("bundle %s ready but could not enter InGame: %v", ev.Bundle, err)
		}
	case events.BundleLoadFailed:
		if !c.gates(ev.Bundle) {
			return
		}
		c.Fail(&AssetLoadError{Bundle: ev.Bundle, Asset: ev.Asset})
	}
}

func (c *Controller) gates(bundle string) bool {
	if c.Current() != Loading {
		logging.LifecycleDebug("ignoring signal for bundle %s outside Loading", bundle)
		return false
	}
	return c.awaitBundle == "" || c.awaitBundle == bundle
}

// RequestExit asks the process to terminate. It is valid from every phase
// and is the second way out of Error.
func (c *Controller) RequestExit() {
	if !c.exit.Swap(true) {
		logging.Lifecycle("exit requested in %s", c.Current())
	}
}

// ExitRequested reports whether RequestExit was called.
func (c *Controller) ExitRequested() bool {
	return c.exit.Load()
}

// Recovery lists the ways out of the current phase when it is Error.
// The result is always MainMenu plus exit.
func (c *Controller) Recovery() []string {
	if c.Current() != Error {
		return nil
	}
	return []string{"Return to main menu", "Exit"}
}
