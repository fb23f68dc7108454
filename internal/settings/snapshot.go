// Package settings keeps user-adjustable settings in sync between the live
// runtime, the on-screen settings surface and the settings file.
//
// Store holds the validated in-memory Snapshot and is the source of truth
// during a run. Sync applies every change to its live subsystem on the same
// tick and persists through a delta-time debounce. Persistence writes the
// file atomically, migrates older schemas and backs up corrupt files.
package settings

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
)

// CurrentVersion is the schema version written by this build.
//
//	v1: display, audio.master, audio.music, language
//	v2: + audio.sfx
//	v3: + graphics.quality
const CurrentVersion = 3

// Resolution limits, inclusive.
const (
	MinWidth  = 640
	MaxWidth  = 7680
	MinHeight = 360
	MaxHeight = 4320
)

// DefaultLanguage is used when the stored tag is missing or unparseable.
const DefaultLanguage = "en"

// Quality is the graphics quality tier.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityUltra  Quality = "ultra"
)

// Qualities lists tiers from cheapest to most expensive.
var Qualities = []Quality{QualityLow, QualityMedium, QualityHigh, QualityUltra}

// ParseQuality accepts a tier name case-insensitively.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Qualities {
		if q == known {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown quality tier %q", s)
}

// Snapshot is a complete settings value. It holds no references, so a plain
// copy is an independent snapshot safe to hand to another goroutine.
type Snapshot struct {
	Version  int              `yaml:"version"`
	Display  DisplaySettings  `yaml:"display"`
	Audio    AudioSettings    `yaml:"audio"`
	Language string           `yaml:"language"`
	Graphics GraphicsSettings `yaml:"graphics"`
}

// DisplaySettings configures the window.
type DisplaySettings struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
}

// AudioSettings holds bus volumes in [0,1].
type AudioSettings struct {
	Master float64 `yaml:"master"`
	Music  float64 `yaml:"music"`
	SFX    float64 `yaml:"sfx"`
}

// GraphicsSettings holds renderer options.
type GraphicsSettings struct {
	Quality Quality `yaml:"quality"`
}

// Defaults returns the current-version default snapshot.
func Defaults() Snapshot {
	return Snapshot{
		Version: CurrentVersion,
		Display: DisplaySettings{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
		},
		Audio: AudioSettings{
			Master: 0.8,
			Music:  0.7,
			SFX:    0.9,
		},
		Language: DefaultLanguage,
		Graphics: GraphicsSettings{
			Quality: QualityMedium,
		},
	}
}

// Sanitize clamps every field into range and replaces unusable values with
// defaults. The result always carries CurrentVersion.
func Sanitize(s Snapshot) Snapshot {
	d := Defaults()
	s.Version = CurrentVersion
	s.Display.Width = clampInt(s.Display.Width, MinWidth, MaxWidth)
	s.Display.Height = clampInt(s.Display.Height, MinHeight, MaxHeight)
	s.Audio.Master = sanitizeVolume(s.Audio.Master, d.Audio.Master)
	s.Audio.Music = sanitizeVolume(s.Audio.Music, d.Audio.Music)
	s.Audio.SFX = sanitizeVolume(s.Audio.SFX, d.Audio.SFX)
	if tag, err := canonicalLanguage(s.Language); err == nil {
		s.Language = tag
	} else {
		s.Language = d.Language
	}
	if q, err := ParseQuality(string(s.Graphics.Quality)); err == nil {
		s.Graphics.Quality = q
	} else {
		s.Graphics.Quality = d.Graphics.Quality
	}
	return s
}

// Value returns the field addressed by k.
func (s Snapshot) Value(k Key) (any, error) {
	switch k {
	case KeyDisplayWidth:
		return s.Display.Width, nil
	case KeyDisplayHeight:
		return s.Display.Height, nil
	case KeyFullscreen:
		return s.Display.Fullscreen, nil
	case KeyMasterVolume:
		return s.Audio.Master, nil
	case KeyMusicVolume:
		return s.Audio.Music, nil
	case KeySFXVolume:
		return s.Audio.SFX, nil
	case KeyLanguage:
		return s.Language, nil
	case KeyGraphicsQuality:
		return s.Graphics.Quality, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
}

// Format renders the field addressed by k for display.
func (s Snapshot) Format(k Key) string {
	v, err := s.Value(k)
	if err != nil {
		return "?"
	}
	switch val := v.(type) {
	case float64:
		return fmt.Sprintf("%d%%", int(math.Round(val*100)))
	case bool:
		if val {
			return "on"
		}
		return "off"
	default:
		return fmt.Sprint(val)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampVolume(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func sanitizeVolume(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return clampVolume(v)
}

// canonicalLanguage validates a BCP 47 tag and returns its canonical form.
func canonicalLanguage(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty language tag")
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", s, err)
	}
	return tag.String(), nil
}
