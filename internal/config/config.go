package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"stagehand/internal/lifecycle"
)

// Config holds all stagehand configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// File locations
	Paths PathsConfig `yaml:"paths"`

	// Frame and transition timing
	Timing TimingConfig `yaml:"timing"`

	// Asset loader
	Loading LoadingConfig `yaml:"loading"`

	// Start-up overrides
	Boot BootConfig `yaml:"boot"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig locates the files stagehand reads and writes.
type PathsConfig struct {
	Settings   string `yaml:"settings" env:"STAGEHAND_SETTINGS"`
	Manifest   string `yaml:"manifest" env:"STAGEHAND_MANIFEST"`
	AssetsRoot string `yaml:"assets_root" env:"STAGEHAND_ASSETS"`
	DataDir    string `yaml:"data_dir" env:"STAGEHAND_DATA_DIR"` // logs and audit trail
}

// TimingConfig holds durations as strings so the YAML stays readable.
type TimingConfig struct {
	Splash           string `yaml:"splash"`
	Fade             string `yaml:"fade"`
	SettingsDebounce string `yaml:"settings_debounce"`
	FrameRate        int    `yaml:"frame_rate"`
}

// LoadingConfig configures the asset loader.
type LoadingConfig struct {
	Workers int `yaml:"workers" env:"STAGEHAND_LOAD_WORKERS"`
}

// BootConfig carries the development overrides read once at start-up.
type BootConfig struct {
	StartPhase string `yaml:"start_phase" env:"STAGEHAND_START_PHASE"`
	SkipIntro  bool   `yaml:"skip_intro" env:"STAGEHAND_SKIP_INTRO"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "stagehand",
		Version: "0.4.0",

		Paths: PathsConfig{
			Settings:   filepath.Join(".stagehand", "settings.yaml"),
			Manifest:   filepath.Join("assets", "manifest.hcl"),
			AssetsRoot: "assets",
			DataDir:    ".stagehand",
		},

		Timing: TimingConfig{
			Splash:           "2s",
			Fade:             "300ms",
			SettingsDebounce: "500ms",
			FrameRate:        60,
		},

		Loading: LoadingConfig{
			Workers: 4,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies STAGEHAND_* environment variables. Unset
// variables leave the loaded value alone.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetSplashDuration returns how long the splash screen is shown.
func (c *Config) GetSplashDuration() time.Duration {
	return parseDurationOr(c.Timing.Splash, 2*time.Second)
}

// GetFadeDuration returns the length of each half of a fade.
func (c *Config) GetFadeDuration() time.Duration {
	return parseDurationOr(c.Timing.Fade, 300*time.Millisecond)
}

// GetSettingsDebounce returns the quiet period before settings are written.
func (c *Config) GetSettingsDebounce() time.Duration {
	d := parseDurationOr(c.Timing.SettingsDebounce, 500*time.Millisecond)
	if d == 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetFrameInterval returns the tick interval for the configured frame rate.
func (c *Config) GetFrameInterval() time.Duration {
	rate := c.Timing.FrameRate
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// GetWorkers returns the loader worker count.
func (c *Config) GetWorkers() int {
	if c.Loading.Workers <= 0 {
		return 4
	}
	return c.Loading.Workers
}

// BootOverrides converts the boot section for the phase controller.
func (c *Config) BootOverrides() (lifecycle.BootOverrides, error) {
	o := lifecycle.BootOverrides{SkipIntro: c.Boot.SkipIntro}
	if c.Boot.StartPhase == "" {
		return o, nil
	}
	p, err := lifecycle.ParsePhase(c.Boot.StartPhase)
	if err != nil {
		return o, fmt.Errorf("boot.start_phase: %w", err)
	}
	o.StartPhase = &p
	return o, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Paths.Settings == "" {
		return fmt.Errorf("paths.settings is required")
	}
	if c.Paths.Manifest == "" {
		return fmt.Errorf("paths.manifest is required")
	}
	if c.Timing.FrameRate < 1 || c.Timing.FrameRate > 240 {
		return fmt.Errorf("timing.frame_rate must be between 1 and 240, got %d", c.Timing.FrameRate)
	}
	for name, value := range map[string]string{
		"timing.splash":            c.Timing.Splash,
		"timing.fade":              c.Timing.Fade,
		"timing.settings_debounce": c.Timing.SettingsDebounce,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Loading.Workers < 1 || c.Loading.Workers > 64 {
		return fmt.Errorf("loading.workers must be between 1 and 64, got %d", c.Loading.Workers)
	}
	if _, err := c.BootOverrides(); err != nil {
		return err
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	return nil
}
