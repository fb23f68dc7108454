package settings

import (
	"errors"
	"fmt"
)

// ErrFutureVersion is returned when a file was written by a newer build.
var ErrFutureVersion = errors.New("settings file version is newer than supported")

// MigrationResult contains information about a settings migration.
type MigrationResult struct {
	WasMigrated     bool
	FromVersion     int
	ToVersion       int
	DefaultsApplied []string // keys filled in by migration steps
}

type migrationStep struct {
	from  int
	apply func(doc map[string]any, result *MigrationResult)
}

// Steps are applied in order starting at the file's version. Each step
// upgrades by exactly one version.
var migrationSteps = []migrationStep{
	{from: 1, apply: migrateV1ToV2},
	{from: 2, apply: migrateV2ToV3},
}

// Migrate upgrades a raw decoded document to CurrentVersion in place. A
// missing version field is read as version 1.
func Migrate(doc map[string]any) (*MigrationResult, error) {
	version, err := documentVersion(doc)
	if err != nil {
		return nil, err
	}
	result := &MigrationResult{FromVersion: version, ToVersion: CurrentVersion}
	if version > CurrentVersion {
		return result, fmt.Errorf("%w: %d > %d", ErrFutureVersion, version, CurrentVersion)
	}

	for _, step := range migrationSteps {
		if step.from < version {
			continue
		}
		step.apply(doc, result)
		version = step.from + 1
		doc["version"] = version
		result.WasMigrated = true
	}
	if version != CurrentVersion {
		return result, fmt.Errorf("no migration path from version %d to %d", version, CurrentVersion)
	}
	return result, nil
}

func documentVersion(doc map[string]any) (int, error) {
	raw, ok := doc["version"]
	if !ok || raw == nil {
		return 1, nil
	}
	var v int
	switch n := raw.(type) {
	case int:
		v = n
	case int64:
		v = int(n)
	case uint64:
		v = int(n)
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("version %v is not an integer", n)
		}
		v = int(n)
	default:
		return 0, fmt.Errorf("version has type %T, want integer", raw)
	}
	if v < 1 {
		return 0, fmt.Errorf("version %d out of range", v)
	}
	return v, nil
}

// section returns doc[name] as a map, creating it when absent.
// A present value of the wrong type is left alone for decoding to reject.
func section(doc map[string]any, name string) map[string]any {
	v, ok := doc[name]
	if !ok || v == nil {
		m := make(map[string]any)
		doc[name] = m
		return m
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}

// v2 split effects out of the master bus.
func migrateV1ToV2(doc map[string]any, result *MigrationResult) {
	audio := section(doc, "audio")
	if _, ok := audio["sfx"]; !ok {
		audio["sfx"] = Defaults().Audio.SFX
		result.DefaultsApplied = append(result.DefaultsApplied, KeySFXVolume.String())
	}
}

// v3 added the graphics section.
func migrateV2ToV3(doc map[string]any, result *MigrationResult) {
	graphics := section(doc, "graphics")
	if _, ok := graphics["quality"]; !ok {
		graphics["quality"] = string(Defaults().Graphics.Quality)
		result.DefaultsApplied = append(result.DefaultsApplied, KeyGraphicsQuality.String())
	}
}
