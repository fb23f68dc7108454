package settings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidValue is returned when a value cannot be coerced to a key's type
// or falls outside what the key accepts after clamping.
var ErrInvalidValue = errors.New("invalid settings value")

// DirtyMark records whether memory is ahead of the file.
type DirtyMark struct {
	Dirty        bool
	LastMutation time.Time
	// Generation increases on every mutation. A save captures the
	// generation it wrote so a later mutation keeps the store dirty.
	Generation uint64
}

// Store holds the authoritative in-memory Snapshot.
type Store struct {
	mu    sync.RWMutex
	snap  Snapshot
	mark  DirtyMark
	clock func() time.Time
}

// NewStore creates a store seeded with a sanitized copy of initial.
func NewStore(initial Snapshot) *Store {
	return &Store{snap: Sanitize(initial), clock: time.Now}
}

// SetClock replaces the mutation clock. Used by tests.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Dirty returns the current dirty mark.
func (s *Store) Dirty() DirtyMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mark
}

// Set validates, coerces and clamps value for key, then stores it and marks
// the store dirty. On error the snapshot is unchanged.
func (s *Store) Set(key Key, value any) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap
	if err := assign(&next, key, value); err != nil {
		return s.snap, err
	}
	s.snap = next
	s.touchLocked()
	return s.snap, nil
}

// Replace swaps in a whole snapshot, sanitized, without marking dirty. Used
// once the file has been loaded and by reset.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Sanitize(snap)
}

// MarkDirty flags memory as ahead of the file without changing a value.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

// MarkPersisted clears the dirty flag if no mutation happened after the
// snapshot of generation gen was taken. It reports whether the store is now
// clean.
func (s *Store) MarkPersisted(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mark.Generation == gen {
		s.mark.Dirty = false
	}
	return !s.mark.Dirty
}

// Capture returns the snapshot together with its generation, for handing to
// a writer.
func (s *Store) Capture() (Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.mark.Generation
}

func (s *Store) touchLocked() {
	s.mark.Dirty = true
	s.mark.Generation++
	s.mark.LastMutation = s.clock()
}

func assign(snap *Snapshot, key Key, value any) error {
	switch key {
	case KeyDisplayWidth:
		v, err := toInt(value)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Display.Width = clampInt(v, MinWidth, MaxWidth)
	case KeyDisplayHeight:
		v, err := toInt(value)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Display.Height = clampInt(v, MinHeight, MaxHeight)
	case KeyFullscreen:
		v, err := toBool(value)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Display.Fullscreen = v
	case KeyMasterVolume:
		v, err := toVolume(value)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Audio.Master = v
	case KeyMusicVolume:
		v, err := toVolume(value)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Audio.Music = v
	case KeySFXVolume:
		v, err := toVolume(value)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Audio.SFX = v
	case KeyLanguage:
		raw, ok := value.(string)
		if !ok {
			return invalid(key, value, fmt.Errorf("expected string, got %T", value))
		}
		tag, err := canonicalLanguage(raw)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Language = tag
	case KeyGraphicsQuality:
		var raw string
		switch v := value.(type) {
		case Quality:
			raw = string(v)
		case string:
			raw = v
		default:
			return invalid(key, value, fmt.Errorf("expected quality tier, got %T", value))
		}
		q, err := ParseQuality(raw)
		if err != nil {
			return invalid(key, value, err)
		}
		snap.Graphics.Quality = q
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func invalid(key Key, value any, cause error) error {
	return fmt.Errorf("%w: %s = %v: %v", ErrInvalidValue, key, value, cause)
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("not a finite number")
		}
		// Out-of-range float to int conversion is implementation-defined.
		v = math.Max(math.Min(math.Round(v), math.MaxInt32), math.MinInt32)
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "yes":
			return true, nil
		case "off", "no":
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("expected bool, got %T", value)
	}
}

// toVolume clamps into [0,1]. NaN is rejected; infinities clamp.
func toVolume(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		pct := strings.HasSuffix(s, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		if pct {
			parsed /= 100
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("volume is NaN")
	}
	return clampVolume(f), nil
}
