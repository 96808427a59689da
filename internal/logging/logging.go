// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"tradegate/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "tradegate", "logs", "pipeline.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithSignal adds a signal ID to the logger context.
func WithSignal(logger zerolog.Logger, signalID string) zerolog.Logger {
	return logger.With().Str("signal_id", signalID).Logger()
}

// WithVenue adds account and venue identity to the logger context.
func WithVenue(logger zerolog.Logger, accountID, venue string) zerolog.Logger {
	return logger.With().Str("account_id", accountID).Str("venue", venue).Logger()
}

// WithOrderID adds a client order ID to the logger context.
func WithOrderID(logger zerolog.Logger, clientOrderID string) zerolog.Logger {
	return logger.With().Str("client_order_id", clientOrderID).Logger()
}

// LogSignal logs a generated trading signal.
func LogSignal(logger zerolog.Logger, signal *models.TradingSignal) {
	logger.Info().
		Str("event", "signal").
		Str("signal_id", signal.ID).
		Str("symbol", signal.Symbol).
		Str("side", string(signal.Side)).
		Str("trading_type", string(signal.TradingType)).
		Float64("leverage", signal.Leverage).
		Float64("confidence", signal.Confidence).
		Msg("Signal generated")
}

// LogVerdict logs a validation verdict.
func LogVerdict(logger zerolog.Logger, verdict *models.ValidationVerdict) {
	flags := make([]string, 0, len(verdict.RiskFlags))
	for _, f := range verdict.RiskFlags {
		flags = append(flags, string(f))
	}
	logger.Info().
		Str("event", "verdict").
		Str("signal_id", verdict.SignalID).
		Str("status", string(verdict.Status)).
		Strs("risk_flags", flags).
		Str("validator", verdict.ValidatorIdentity).
		Msg("Validation verdict")
}

// LogDecision logs an enforcement decision.
func LogDecision(logger zerolog.Logger, decision *models.EnforcementDecision) {
	event := logger.Info().
		Str("event", "decision").
		Str("signal_id", decision.SignalID).
		Str("action", string(decision.Action))
	if decision.Action == models.ActionExecuteCorrected {
		event = event.
			Str("corrected_trading_type", string(decision.CorrectedTradingType)).
			Float64("corrected_leverage", decision.CorrectedLeverage)
	}
	if decision.Action == models.ActionReject {
		event = event.Str("violated_invariant", string(decision.ViolatedInvariant))
	}
	event.Msg("Enforcement decision")
}

// LogOrder logs an order submission result.
func LogOrder(logger zerolog.Logger, order *models.Order) {
	logger.Info().
		Str("event", "order").
		Str("client_order_id", order.ClientOrderID).
		Str("signal_id", order.SignalID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("status", string(order.Status)).
		Msg("Order update")
}
