package app

import (
	"time"

	"stagehand/internal/assets"
	"stagehand/internal/fade"
	"stagehand/internal/lifecycle"
	"stagehand/internal/settings"
)

// Status is a read-only view of the runtime for rendering.
type Status struct {
	Frame       uint64
	Phase       lifecycle.Phase
	Fade        fade.State
	Alpha       float64
	SplashLeft  time.Duration
	Bundle      string
	Progress    assets.LoadProgress
	Failure     error
	Recovery    []string
	Settings    settings.Snapshot
	SettingsDue bool
	Exit        bool
}

// Status returns the current view.
func (r *Runtime) Status() Status {
	return Status{
		Frame:       r.frame,
		Phase:       r.ctrl.Current(),
		Fade:        r.fader.State(),
		Alpha:       r.fader.Alpha(),
		SplashLeft:  max(r.splashLeft, 0),
		Bundle:      r.activeTag,
		Progress:    r.progress,
		Failure:     r.ctrl.LastFailure(),
		Recovery:    r.ctrl.Recovery(),
		Settings:    r.settings.Store().Get(),
		SettingsDue: r.settings.Pending(),
		Exit:        r.ctrl.ExitRequested(),
	}
}

// Phase returns the current phase.
func (r *Runtime) Phase() lifecycle.Phase { return r.ctrl.Current() }

// Overlay returns the settings overlay.
func (r *Runtime) Overlay() *Overlay { return r.overlay }

// Manifest returns the loaded asset manifest.
func (r *Runtime) Manifest() *assets.Manifest { return r.manifest }

// SettingsLoadReport describes how settings were loaded at boot.
func (r *Runtime) SettingsLoadReport() settings.LoadReport { return r.loadReport }

// SessionID identifies this run in the audit trail.
func (r *Runtime) SessionID() string { return r.sessionID }
