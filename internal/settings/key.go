package settings

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned for keys outside the closed Key set.
var ErrUnknownKey = errors.New("unknown settings key")

// Key identifies one user-adjustable setting. The set is closed: every switch
// over Key lists all members, so adding one fails loudly in review and tests
// rather than silently doing nothing.
type Key int

const (
	KeyDisplayWidth Key = iota
	KeyDisplayHeight
	KeyFullscreen
	KeyMasterVolume
	KeyMusicVolume
	KeySFXVolume
	KeyLanguage
	KeyGraphicsQuality
)

// Keys lists every key in surface order.
var Keys = []Key{
	KeyDisplayWidth,
	KeyDisplayHeight,
	KeyFullscreen,
	KeyMasterVolume,
	KeyMusicVolume,
	KeySFXVolume,
	KeyLanguage,
	KeyGraphicsQuality,
}

// String returns the dotted path of the key in the settings file.
func (k Key) String() string {
	switch k {
	case KeyDisplayWidth:
		return "display.width"
	case KeyDisplayHeight:
		return "display.height"
	case KeyFullscreen:
		return "display.fullscreen"
	case KeyMasterVolume:
		return "audio.master"
	case KeyMusicVolume:
		return "audio.music"
	case KeySFXVolume:
		return "audio.sfx"
	case KeyLanguage:
		return "language"
	case KeyGraphicsQuality:
		return "graphics.quality"
	default:
		return fmt.Sprintf("Key(%d)", int(k))
	}
}

// Label is the human-facing name shown on the settings surface.
func (k Key) Label() string {
	switch k {
	case KeyDisplayWidth:
		return "Width"
	case KeyDisplayHeight:
		return "Height"
	case KeyFullscreen:
		return "Fullscreen"
	case KeyMasterVolume:
		return "Master volume"
	case KeyMusicVolume:
		return "Music volume"
	case KeySFXVolume:
		return "Effects volume"
	case KeyLanguage:
		return "Language"
	case KeyGraphicsQuality:
		return "Graphics quality"
	default:
		return k.String()
	}
}

// ParseKey resolves a dotted key path.
func ParseKey(s string) (Key, error) {
	for _, k := range Keys {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Valid reports whether k is a member of the closed set.
func (k Key) Valid() bool {
	return k >= KeyDisplayWidth && k <= KeyGraphicsQuality
}
