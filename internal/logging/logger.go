// Package logging provides config-driven categorized logging for stagehand.
// Every category is a named child of one zap logger. When debug mode is off
// the base logger is a no-op core, so calls cost almost nothing.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // Boot/initialization
	CategoryLifecycle   Category = "lifecycle"   // Phase state machine
	CategoryFade        Category = "fade"        // Transition fader
	CategoryAssets      Category = "assets"      // Bundle tracking and loader workers
	CategorySettings    Category = "settings"    // Settings store and sync
	CategoryPersistence Category = "persistence" // Settings file load/save/migrate
	CategoryWatcher     Category = "watcher"     // External settings edits
	CategoryUI          Category = "ui"          // Terminal surface
)

// Options mirrors the logging section of the app config to avoid an import
// cycle with internal/config.
type Options struct {
	Dir        string          // directory for the log file
	Level      string          // debug, info, warn, error
	JSONFormat bool            // json encoder instead of console
	DebugMode  bool            // master toggle - false = no logging
	Categories map[string]bool // per-category toggles, nil = all enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	logFile *os.File
	loggers = make(map[Category]*Logger)
)

// Initialize builds the base zap logger from opts. It is safe to call more
// than once; the previous log file is closed.
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	opts = o
	if !o.DebugMode {
		base = zap.NewNop()
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("log directory required in debug mode")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	name := fmt.Sprintf("%s_stagehand.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(o.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(f), parseLevel(o.Level))
	base = zap.New(core)

	boot := base.Named(string(CategoryBoot)).Sugar()
	boot.Infof("=== stagehand logging initialized ===")
	boot.Infof("Log level: %s", o.Level)
	if len(o.Categories) == 0 {
		boot.Infof("All categories enabled (no category filter)")
	}
	return nil
}

// SetBase replaces the base logger. Used by the CLI to share its zap logger
// and by tests to install an observer core.
func SetBase(l *zap.Logger, categories map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	base = l
	opts.DebugMode = true
	opts.Categories = categories
	loggers = make(map[Category]*Logger)
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	zl := zap.NewNop()
	if categoryEnabledLocked(category) {
		zl = base.Named(string(category))
	}
	l := &Logger{category: category, sugar: zl.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes the log file.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	base = zap.NewNop()
}

func closeLocked() {
	_ = base.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Category-specific logging
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// BootError logs an error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// Lifecycle logs to the lifecycle category
func Lifecycle(format string, args ...interface{}) {
	Get(CategoryLifecycle).Info(format, args...)
}

// LifecycleDebug logs debug to the lifecycle category
func LifecycleDebug(format string, args ...interface{}) {
	Get(CategoryLifecycle).Debug(format, args...)
}

// LifecycleWarn logs a warning to the lifecycle category
func LifecycleWarn(format string, args ...interface{}) {
	Get(CategoryLifecycle).Warn(format, args...)
}

// LifecycleError logs an error to the lifecycle category
func LifecycleError(format string, args ...interface{}) {
	Get(CategoryLifecycle).Error(format, args...)
}

// Fade logs to the fade category
func Fade(format string, args ...interface{}) {
	Get(CategoryFade).Info(format, args...)
}

// FadeDebug logs debug to the fade category
func FadeDebug(format string, args ...interface{}) {
	Get(CategoryFade).Debug(format, args...)
}

// FadeWarn logs a warning to the fade category
func FadeWarn(format string, args ...interface{}) {
	Get(CategoryFade).Warn(format, args...)
}

// Assets logs to the assets category
func Assets(format string, args ...interface{}) {
	Get(CategoryAssets).Info(format, args...)
}

// AssetsDebug logs debug to the assets category
func AssetsDebug(format string, args ...interface{}) {
	Get(CategoryAssets).Debug(format, args...)
}

// AssetsWarn logs a warning to the assets category
func AssetsWarn(format string, args ...interface{}) {
	Get(CategoryAssets).Warn(format, args...)
}

// AssetsError logs an error to the assets category
func AssetsError(format string, args ...interface{}) {
	Get(CategoryAssets).Error(format, args...)
}

// Settings logs to the settings category
func Settings(format string, args ...interface{}) {
	Get(CategorySettings).Info(format, args...)
}

// SettingsDebug logs debug to the settings category
func SettingsDebug(format string, args ...interface{}) {
	Get(CategorySettings).Debug(format, args...)
}

// SettingsWarn logs a warning to the settings category
func SettingsWarn(format string, args ...interface{}) {
	Get(CategorySettings).Warn(format, args...)
}

// SettingsError logs an error to the settings category
func SettingsError(format string, args ...interface{}) {
	Get(CategorySettings).Error(format, args...)
}

// Persistence logs to the persistence category
func Persistence(format string, args ...interface{}) {
	Get(CategoryPersistence).Info(format, args...)
}

// PersistenceDebug logs debug to the persistence category
func PersistenceDebug(format string, args ...interface{}) {
	Get(CategoryPersistence).Debug(format, args...)
}

// PersistenceWarn logs a warning to the persistence category
func PersistenceWarn(format string, args ...interface{}) {
	Get(CategoryPersistence).Warn(format, args...)
}

// PersistenceError logs an error to the persistence category
func PersistenceError(format string, args ...interface{}) {
	Get(CategoryPersistence).Error(format, args...)
}

// Watcher logs to the watcher category
func Watcher(format string, args ...interface{}) {
	Get(CategoryWatcher).Info(format, args...)
}

// WatcherDebug logs debug to the watcher category
func WatcherDebug(format string, args ...interface{}) {
	Get(CategoryWatcher).Debug(format, args...)
}

// WatcherWarn logs a warning to the watcher category
func WatcherWarn(format string, args ...interface{}) {
	Get(CategoryWatcher).Warn(format, args...)
}

// UI logs to the ui category
func UI(format string, args ...interface{}) {
	Get(CategoryUI).Info(format, args...)
}

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...interface{}) {
	Get(CategoryUI).Debug(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
