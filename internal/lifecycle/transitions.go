package lifecycle

// transitions is the allow-list of phase edges. Error is reachable from every
// other phase; its only outward edge is MainMenu (process exit is requested
// separately, see Controller.RequestExit).
var transitions = map[Phase][]Phase{
	Booting:  {Splash, MainMenu, Loading, Error},
	Splash:   {MainMenu, Error},
	MainMenu: {Loading, Error},
	Loading:  {InGame, MainMenu, Error},
	InGame:   {Paused, MainMenu, Error},
	Paused:   {InGame, MainMenu, Error},
	Error:    {MainMenu},
}

// CanTransition checks if a transition from one phase to another is allowed.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Targets returns the phases reachable from p in one step.
func Targets(p Phase) []Phase {
	out := make([]Phase, len(transitions[p]))
	copy(out, transitions[p])
	return out
}
