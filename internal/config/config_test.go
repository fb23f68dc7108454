package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"stagehand/internal/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "stagehand" {
		t.Errorf("expected Name=stagehand, got %s", cfg.Name)
	}
	if cfg.Timing.FrameRate != 60 {
		t.Errorf("expected FrameRate=60, got %d", cfg.Timing.FrameRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "stagehand.yaml")

	cfg := DefaultConfig()
	cfg.Paths.Manifest = "game/manifest.hcl"
	cfg.Timing.Fade = "450ms"
	cfg.Loading.Workers = 8

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Paths.Manifest != "game/manifest.hcl" {
		t.Errorf("expected Manifest=game/manifest.hcl, got %s", loaded.Paths.Manifest)
	}
	if loaded.GetFadeDuration() != 450*time.Millisecond {
		t.Errorf("expected fade 450ms, got %v", loaded.GetFadeDuration())
	}
	if loaded.GetWorkers() != 8 {
		t.Errorf("expected 8 workers, got %d", loaded.GetWorkers())
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Paths, cfg.Paths)
}

func TestConfig_LoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing: [1, 2"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("boot overrides", func(t *testing.T) {
		t.Setenv("STAGEHAND_START_PHASE", "main-menu")
		t.Setenv("STAGEHAND_SKIP_INTRO", "true")

		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "main-menu", cfg.Boot.StartPhase)
		assert.True(t, cfg.Boot.SkipIntro)

		o, err := cfg.BootOverrides()
		require.NoError(t, err)
		require.NotNil(t, o.StartPhase)
		assert.Equal(t, lifecycle.MainMenu, *o.StartPhase)
		assert.True(t, o.SkipIntro)
	})

	t.Run("paths and workers", func(t *testing.T) {
		t.Setenv("STAGEHAND_SETTINGS", "/tmp/s.yaml")
		t.Setenv("STAGEHAND_LOAD_WORKERS", "2")
		t.Setenv("STAGEHAND_DEBUG", "1")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "/tmp/s.yaml", cfg.Paths.Settings)
		assert.Equal(t, 2, cfg.Loading.Workers)
		assert.True(t, cfg.Logging.DebugMode)
		// Untouched fields keep their defaults.
		assert.Equal(t, DefaultConfig().Paths.Manifest, cfg.Paths.Manifest)
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("STAGEHAND_LOAD_WORKERS", "many")
		cfg := DefaultConfig()
		err := cfg.applyEnvOverrides()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no settings path", func(c *Config) { c.Paths.Settings = "" }},
		{"no manifest", func(c *Config) { c.Paths.Manifest = "" }},
		{"frame rate", func(c *Config) { c.Timing.FrameRate = 0 }},
		{"fade", func(c *Config) { c.Timing.Fade = "soon" }},
		{"workers", func(c *Config) { c.Loading.Workers = 1000 }},
		{"start phase", func(c *Config) { c.Boot.StartPhase = "credits" }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timing.Splash = "garbage"
	cfg.Timing.SettingsDebounce = "0s"
	cfg.Timing.FrameRate = 50
	cfg.Loading.Workers = 0

	assert.Equal(t, 2*time.Second, cfg.GetSplashDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.GetSettingsDebounce())
	assert.Equal(t, 20*time.Millisecond, cfg.GetFrameInterval())
	assert.Equal(t, 4, cfg.GetWorkers())

	o, err := cfg.BootOverrides()
	require.NoError(t, err)
	assert.Nil(t, o.StartPhase)
}

func TestLoggingConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Logging.IsCategoryEnabled("assets"))

	cfg.Logging.DebugMode = true
	cfg.Logging.Categories = map[string]bool{"assets": false}
	assert.False(t, cfg.Logging.IsCategoryEnabled("assets"))
	assert.True(t, cfg.Logging.IsCategoryEnabled("fade"))

	opts := cfg.LoggingOptions()
	assert.Equal(t, filepath.Join(".stagehand", "logs"), opts.Dir)
	assert.True(t, opts.DebugMode)
	assert.False(t, opts.JSONFormat)
}
