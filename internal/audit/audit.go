// Package audit provides the append-only audit trail for constraint
// violations and corrections.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"tradegate/internal/config"
	"tradegate/internal/models"
)

// Recorder is the append-only audit sink consumed by the pipeline. A
// Recorder must never fail the caller: sink errors go to the operational
// log, not back up the call chain.
type Recorder interface {
	Record(entry models.AuditEntry)
}

// Logger writes audit entries as JSONL through a rotating file writer.
// Entries are never mutated or deleted here; retention is handled by the
// rotation policy.
type Logger struct {
	writer *lumberjack.Logger
	log    zerolog.Logger
	mu     sync.Mutex
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() config.AuditConfig {
	home, _ := os.UserHomeDir()
	return config.AuditConfig{
		LogDir:     filepath.Join(home, ".config", "tradegate", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365, // Keep audit logs for 1 year
		Compress:   true,
	}
}

// NewLogger creates a new audit logger. The zerolog logger is the
// operational channel used to report sink failures.
func NewLogger(cfg config.AuditConfig, log zerolog.Logger) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	return &Logger{
		writer: &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "audit.log"),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		},
		log: log,
	}, nil
}

// Record appends an audit entry. The caller supplies a stage-ordered
// timestamp; a zero timestamp is filled with the current time. Errors are
// reported to the operational log and swallowed so that an audit sink
// failure can never block enforcement or execution.
func (l *Logger) Record(entry models.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.log.Error().Err(err).
			Str("signal_id", entry.SignalID).
			Msg("Failed to serialize audit entry")
		return
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		l.log.Error().Err(err).
			Str("signal_id", entry.SignalID).
			Str("stage", string(entry.Stage)).
			Msg("Failed to write audit entry")
	}
}

// Close closes the underlying writer.
func (l *Logger) Close() error {
	return l.writer.Close()
}

// StageClock hands out timestamps that are strictly monotonic per signal,
// so entries for the same signal order correctly by stage even when two
// stages complete within the same clock tick.
type StageClock struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewStageClock creates a new StageClock.
func NewStageClock() *StageClock {
	return &StageClock{last: make(map[string]time.Time)}
}

// Next returns a timestamp strictly after any previously issued timestamp
// for the signal.
func (c *StageClock) Next(signalID string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := c.last[signalID]; ok && !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	c.last[signalID] = now
	return now
}

// Forget releases per-signal tracking once the signal is terminal.
func (c *StageClock) Forget(signalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, signalID)
}
