package config

import (
	"path/filepath"

	"stagehand/internal/logging"
)

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`                                 // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty"`                               // json, text
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty" env:"STAGEHAND_DEBUG"` // Master toggle - false = no logging (production)
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`                       // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true // All enabled by default in debug mode
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// LoggingOptions builds the logging package options, writing under the
// data directory.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Dir:        filepath.Join(c.Paths.DataDir, "logs"),
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.Format == "json",
		DebugMode:  c.Logging.DebugMode,
		Categories: c.Logging.Categories,
	}
}

func validLevel(level string) bool {
	if level == "" {
		return true
	}
	for _, l := range ValidLevels {
		if l == level {
			return true
		}
	}
	return false
}
