// Package lifecycle owns the application phase state machine: which phase is
// active, which transitions are allowed, and who hears about a change.
package lifecycle

import (
	"fmt"
	"strings"
)

// Phase is a mutually exclusive stage of the application lifecycle.
type Phase int32

const (
	Booting Phase = iota
	Splash
	MainMenu
	Loading
	InGame
	Paused
	Error
)

// Phases lists every phase in declaration order.
var Phases = []Phase{Booting, Splash, MainMenu, Loading, InGame, Paused, Error}

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case Booting:
		return "Booting"
	case Splash:
		return "Splash"
	case MainMenu:
		return "MainMenu"
	case Loading:
		return "Loading"
	case InGame:
		return "InGame"
	case Paused:
		return "Paused"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return p >= Booting && p <= Error
}

// ParsePhase accepts a phase name case-insensitively, with or without
// separators ("main-menu", "main_menu" and "MainMenu" are equal).
func ParsePhase(s string) (Phase, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, p := range Phases {
		if strings.ToLower(p.String()) == norm {
			return p, nil
		}
	}
	return Booting, fmt.Errorf("unknown phase %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int32(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
