package settings

import "fmt"

// Bus names an audio mixer bus.
type Bus string

const (
	BusMaster Bus = "master"
	BusMusic  Bus = "music"
	BusSFX    Bus = "sfx"
)

// Window is the display subsystem.
type Window interface {
	Resize(width, height int) error
	SetFullscreen(fullscreen bool) error
}

// Mixer is the audio subsystem.
type Mixer interface {
	SetGain(bus Bus, gain float64) error
}

// Localizer switches the active language.
type Localizer interface {
	SetLanguage(tag string) error
}

// Renderer switches the graphics quality tier.
type Renderer interface {
	SetQuality(q Quality) error
}

// Subsystems are the live consumers of settings. Nil members are skipped.
type Subsystems struct {
	Window    Window
	Mixer     Mixer
	Localizer Localizer
	Renderer  Renderer
}

// Apply pushes the value of key in snap to its subsystem.
func (s Subsystems) Apply(key Key, snap Snapshot) error {
	switch key {
	case KeyDisplayWidth, KeyDisplayHeight:
		if s.Window != nil {
			return s.Window.Resize(snap.Display.Width, snap.Display.Height)
		}
	case KeyFullscreen:
		if s.Window != nil {
			return s.Window.SetFullscreen(snap.Display.Fullscreen)
		}
	case KeyMasterVolume:
		if s.Mixer != nil {
			return s.Mixer.SetGain(BusMaster, snap.Audio.Master)
		}
	case KeyMusicVolume:
		if s.Mixer != nil {
			return s.Mixer.SetGain(BusMusic, snap.Audio.Music)
		}
	case KeySFXVolume:
		if s.Mixer != nil {
			return s.Mixer.SetGain(BusSFX, snap.Audio.SFX)
		}
	case KeyLanguage:
		if s.Localizer != nil {
			return s.Localizer.SetLanguage(snap.Language)
		}
	case KeyGraphicsQuality:
		if s.Renderer != nil {
			return s.Renderer.SetQuality(snap.Graphics.Quality)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}
