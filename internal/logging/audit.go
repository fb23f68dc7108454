package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// AUDIT EVENT TYPES - one per outbound lifecycle event
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	AuditPhaseChanged      AuditEventType = "phase_changed"
	AuditBundleProgress    AuditEventType = "bundle_progress"
	AuditBundleReady       AuditEventType = "bundle_ready"
	AuditBundleLoadFailed  AuditEventType = "bundle_load_failed"
	AuditSettingsApplied   AuditEventType = "settings_applied"
	AuditSettingsPersisted AuditEventType = "settings_persisted"
	AuditSessionStart      AuditEventType = "session_start"
	AuditSessionEnd        AuditEventType = "session_end"
)

// AuditLogger writes one JSON line per lifecycle event so a session can be
// replayed or diffed after the fact.
type AuditLogger struct {
	mu     sync.Mutex
	logger *zap.Logger
	file   *os.File
}

// NewAuditLogger opens (appending) dir/audit.jsonl.
func NewAuditLogger(dir string) (*AuditLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "audit.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "event"
	encCfg.LevelKey = ""
	encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)
	return &AuditLogger{logger: zap.New(core), file: f}, nil
}

// NewNopAuditLogger returns an audit logger that discards everything.
func NewNopAuditLogger() *AuditLogger {
	return &AuditLogger{logger: zap.NewNop()}
}

// NewAuditLoggerWithCore is used by tests to observe audit output.
func NewAuditLoggerWithCore(core zapcore.Core) *AuditLogger {
	return &AuditLogger{logger: zap.New(core)}
}

// Record writes a single audit entry.
func (a *AuditLogger) Record(eventType AuditEventType, fields ...zap.Field) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger.Info(string(eventType), fields...)
}

// Close flushes and closes the audit file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.logger.Sync()
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		return err
	}
	return nil
}
