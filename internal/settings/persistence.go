package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"stagehand/internal/logging"
)

const fileHeader = "# stagehand settings. Written by the running program; edits made while it runs are overwritten.\n"

// ConfigError describes a settings file that could not be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("settings file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadReport describes what Load had to do to produce a usable snapshot.
type LoadReport struct {
	FirstRun    bool   // no file existed
	Migrated    bool   // an older schema was upgraded
	FromVersion int    // version found in the file, 0 when none was read
	BackupPath  string // where an unusable file was moved
	ResetFuture bool   // file came from a newer build
	Saved       bool   // the file was rewritten during load
	Err         error  // first problem encountered, nil on a clean load
}

// Persistence reads and atomically writes the settings file.
type Persistence struct {
	path string
	now  func() time.Time
	mu   sync.Mutex // serializes writers
}

// NewPersistence creates a persistence layer for path.
func NewPersistence(path string) *Persistence {
	return &Persistence{path: path, now: time.Now}
}

// Path returns the settings file path.
func (p *Persistence) Path() string { return p.path }

// Encode renders a snapshot as the settings file body.
func Encode(s Snapshot) ([]byte, error) {
	s.Version = CurrentVersion
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a settings file body of any supported version, migrating
// it to CurrentVersion and sanitizing every field.
func Decode(data []byte) (Snapshot, *MigrationResult, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if doc == nil {
		return Snapshot{}, nil, fmt.Errorf("settings file is empty")
	}
	result, err := Migrate(doc)
	if err != nil {
		return Snapshot{}, result, err
	}
	normalized, err := yaml.Marshal(doc)
	if err != nil {
		return Snapshot{}, result, fmt.Errorf("failed to re-encode settings: %w", err)
	}
	// Keys absent from the document keep their defaults.
	snap := Defaults()
	if err := yaml.Unmarshal(normalized, &snap); err != nil {
		return Snapshot{}, result, fmt.Errorf("failed to decode settings: %w", err)
	}
	return Sanitize(snap), result, nil
}

// Read parses the file without side effects.
func (p *Persistence) Read() (Snapshot, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return Snapshot{}, err
	}
	snap, _, err := Decode(data)
	return snap, err
}

// Save writes s atomically: temp file in the same directory, fsync, rename.
// A crash at any point leaves either the old file or the new one.
func (p *Persistence) Save(s Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryPersistence, "save")
	defer timer.StopWithThreshold(100 * time.Millisecond)

	data, err := Encode(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	syncDir(dir)
	logging.PersistenceDebug("saved %s (%d bytes)", p.path, len(data))
	return nil
}

// syncDir makes the rename durable where the platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Load produces a usable snapshot no matter what is on disk.
//
// A missing file yields defaults, saved immediately. A corrupt or
// future-version file is moved aside to a timestamped .bak and replaced by
// defaults. An older schema is migrated and saved back. Load never returns
// an error; problems are reported through LoadReport.Err.
func (p *Persistence) Load() (Snapshot, LoadReport) {
	var report LoadReport

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			report.FirstRun = true
			logging.Persistence("no settings file at %s, writing defaults", p.path)
			return p.saveDuringLoad(Defaults(), &report), report
		}
		report.Err = &ConfigError{Path: p.path, Err: err}
		logging.PersistenceError("cannot read settings, using defaults for this session: %v", err)
		return Defaults(), report
	}

	snap, migration, err := Decode(data)
	if migration != nil {
		report.FromVersion = migration.FromVersion
	}
	if err != nil {
		report.Err = &ConfigError{Path: p.path, Err: err}
		if errors.Is(err, ErrFutureVersion) {
			report.ResetFuture = true
			logging.PersistenceWarn("settings file is from a newer version (%d), resetting to defaults", report.FromVersion)
		} else {
			logging.PersistenceError("settings file is corrupt: %v", err)
		}
		if backup, berr := p.backup(); berr != nil {
			logging.PersistenceError("failed to back up unusable settings file: %v", berr)
		} else {
			report.BackupPath = backup
			logging.Persistence("moved unusable settings file to %s", backup)
		}
		return p.saveDuringLoad(Defaults(), &report), report
	}

	if migration.WasMigrated {
		report.Migrated = true
		logging.Persistence("migrated settings from v%d to v%d (defaults applied: %v)",
			migration.FromVersion, migration.ToVersion, migration.DefaultsApplied)
		return p.saveDuringLoad(snap, &report), report
	}
	return snap, report
}

func (p *Persistence) saveDuringLoad(s Snapshot, report *LoadReport) Snapshot {
	if err := p.Save(s); err != nil {
		logging.PersistenceError("failed to write settings during load: %v", err)
		if report.Err == nil {
			report.Err = &ConfigError{Path: p.path, Err: err}
		}
		return s
	}
	report.Saved = true
	return s
}

// backup renames the current file to <path>.<stamp>.bak.
func (p *Persistence) backup() (string, error) {
	stamp := p.now().UTC().Format("20060102T150405.000000000")
	target := fmt.Sprintf("%s.%s.bak", p.path, stamp)
	if err := os.Rename(p.path, target); err != nil {
		return "", err
	}
	return target, nil
}
