package ui

import (
	"testing"

	"stagehand/internal/settings"

	"github.com/stretchr/testify/assert"
)

func TestAdjust(t *testing.T) {
	snap := settings.Defaults()

	tests := []struct {
		name string
		key  settings.Key
		dir  int
		want any
	}{
		{"wider", settings.KeyDisplayWidth, 1, 1440},
		{"shorter", settings.KeyDisplayHeight, -1, 630},
		{"fullscreen toggles", settings.KeyFullscreen, 1, true},
		{"fullscreen toggles either way", settings.KeyFullscreen, -1, true},
		{"louder", settings.KeyMasterVolume, 1, 0.85},
		{"quieter music", settings.KeyMusicVolume, -1, 0.65},
		{"next language", settings.KeyLanguage, 1, "en-GB"},
		{"previous language wraps", settings.KeyLanguage, -1, "ja"},
		{"next quality", settings.KeyGraphicsQuality, 1, "high"},
		{"previous quality", settings.KeyGraphicsQuality, -1, "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Adjust(snap, tt.key, tt.dir)
			if f, ok := tt.want.(float64); ok {
				assert.InDelta(t, f, got, 1e-9)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdjustVolumeSnapsToGrid(t *testing.T) {
	snap := settings.Defaults()
	snap.Audio.SFX = 0.333
	assert.InDelta(t, 0.4, Adjust(snap, settings.KeySFXVolume, 1), 1e-9)
	assert.InDelta(t, 0.3, Adjust(snap, settings.KeySFXVolume, -1), 1e-9)
}

func TestAdjustUnknownLanguageRestartsCycle(t *testing.T) {
	snap := settings.Defaults()
	snap.Language = "nl"
	assert.Equal(t, Languages[0], Adjust(snap, settings.KeyLanguage, 1))
}
