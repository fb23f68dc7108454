package lifecycle

import "fmt"

// PhaseChanged is emitted after the controller committed a transition.
type PhaseChanged struct {
	Old Phase
	New Phase
}

// Kind implements events.Event.
func (PhaseChanged) Kind() string { return "phase_changed" }

func (e PhaseChanged) String() string {
	return fmt.Sprintf("PhaseChanged(%s -> %s)", e.Old, e.New)
}
