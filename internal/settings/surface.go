package settings

import "stagehand/internal/lifecycle"

// Surface is where the settings editor may appear.
type Surface int

const (
	SurfaceHidden Surface = iota
	SurfaceMenuPanel
	SurfacePauseOverlay
)

func (s Surface) String() string {
	switch s {
	case SurfaceMenuPanel:
		return "menu-panel"
	case SurfacePauseOverlay:
		return "pause-overlay"
	default:
		return "hidden"
	}
}

// Editable reports whether settings can be changed on this surface.
func (s Surface) Editable() bool { return s != SurfaceHidden }

// SurfaceFor returns the settings surface available in phase p. Settings
// are reachable from the main menu and from the pause overlay only.
func SurfaceFor(p lifecycle.Phase) Surface {
	switch p {
	case lifecycle.MainMenu:
		return SurfaceMenuPanel
	case lifecycle.Paused:
		return SurfacePauseOverlay
	default:
		return SurfaceHidden
	}
}
