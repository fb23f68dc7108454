package ui

import (
	"math"

	"stagehand/internal/settings"
)

// Languages offered on the settings surface, in cycle order.
var Languages = []string{"en", "en-GB", "fr", "de", "es", "pt-BR", "ja"}

const (
	widthStep  = 160
	heightStep = 90
	volumeStep = 0.05
)

// Adjust returns the value key should take after one step in dir (-1 or
// +1). The store still validates and clamps it.
func Adjust(snap settings.Snapshot, key settings.Key, dir int) any {
	switch key {
	case settings.KeyDisplayWidth:
		return snap.Display.Width + dir*widthStep
	case settings.KeyDisplayHeight:
		return snap.Display.Height + dir*heightStep
	case settings.KeyFullscreen:
		return !snap.Display.Fullscreen
	case settings.KeyMasterVolume:
		return stepVolume(snap.Audio.Master, dir)
	case settings.KeyMusicVolume:
		return stepVolume(snap.Audio.Music, dir)
	case settings.KeySFXVolume:
		return stepVolume(snap.Audio.SFX, dir)
	case settings.KeyLanguage:
		return cycle(Languages, snap.Language, dir)
	case settings.KeyGraphicsQuality:
		tiers := make([]string, len(settings.Qualities))
		for i, q := range settings.Qualities {
			tiers[i] = string(q)
		}
		return cycle(tiers, string(snap.Graphics.Quality), dir)
	default:
		return nil
	}
}

// stepVolume moves by one step and snaps to the step grid so repeated
// presses do not accumulate float error.
func stepVolume(v float64, dir int) float64 {
	steps := math.Round(v/volumeStep) + float64(dir)
	return steps * volumeStep
}

func cycle(options []string, current string, dir int) string {
	idx := -1
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return options[0]
	}
	n := len(options)
	return options[((idx+dir)%n+n)%n]
}
