// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"xbee/internal/config"
	"xbee/internal/model"
)

// LoggerManager manages application logging
type LoggerManager struct {
	config *config.LoggingConfig
	stderr io.Writer
}

// NewLogger creates a new logger instance based on configuration. The
// "stderr" output goes to the given writer so callers can capture it.
func NewLogger(cfg *config.LoggingConfig, stderr io.Writer) (*zap.Logger, error) {
	manager := &LoggerManager{
		config: cfg,
		stderr: stderr,
	}

	logger, err := manager.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// createLogger creates the zap logger with proper configuration
func (lm *LoggerManager) createLogger() (*zap.Logger, error) {
	encoderConfig := lm.getEncoderConfig()

	var encoder zapcore.Encoder
	switch lm.config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	writeSyncer, err := lm.getWriteSyncer()
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	level, err := lm.getLogLevel()
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	return zap.New(core, lm.getLoggerOptions()...), nil
}

// getEncoderConfig returns encoder configuration based on format
func (lm *LoggerManager) getEncoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()

	config.TimeKey = "timestamp"
	config.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	config.LevelKey = "level"
	config.EncodeLevel = zapcore.LowercaseLevelEncoder
	config.CallerKey = "caller"
	config.EncodeCaller = zapcore.ShortCallerEncoder
	config.MessageKey = "message"
	config.StacktraceKey = "stacktrace"

	// Console format customizations
	if lm.config.Format != "json" {
		config.EncodeLevel = zapcore.CapitalLevelEncoder
		config.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}

	return config
}

// getWriteSyncer returns write syncer based on output configuration
func (lm *LoggerManager) getWriteSyncer() (zapcore.WriteSyncer, error) {
	switch lm.config.Output {
	case "", "stderr":
		return zapcore.AddSync(lm.stderr), nil
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	default:
		// File output with rotation
		logDir := filepath.Dir(lm.config.Output)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lumber := &lumberjack.Logger{
			Filename:   lm.config.Output,
			MaxSize:    lm.config.MaxSize, // MB
			MaxBackups: lm.config.MaxBackups,
			MaxAge:     lm.config.MaxAge, // days
			Compress:   lm.config.Compress,
		}

		return zapcore.AddSync(lumber), nil
	}
}

// getLogLevel parses and returns log level
func (lm *LoggerManager) getLogLevel() (zapcore.Level, error) {
	switch lm.config.Level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", lm.config.Level)
	}
}

// getLoggerOptions returns logger options
func (lm *LoggerManager) getLoggerOptions() []zap.Option {
	options := []zap.Option{}
	if lm.config.Level == "debug" {
		options = append(options, zap.AddCaller())
	}
	return options
}

// OperationLogger provides structured logging for one provisioning run
type OperationLogger struct {
	logger    *zap.Logger
	operation *model.Operation
}

// NewOperationLogger creates an operation-specific logger
func NewOperationLogger(baseLogger *zap.Logger, op *model.Operation) *OperationLogger {
	logger := baseLogger.With(
		zap.String("operation_type", string(op.OperationType)),
		zap.String("operation_id", op.ID.String()),
		zap.String("component", "operation"),
	)

	return &OperationLogger{
		logger:    logger,
		operation: op,
	}
}

// Logger returns the operation scoped logger
func (ol *OperationLogger) Logger() *zap.Logger {
	return ol.logger
}

// Start logs operation start
func (ol *OperationLogger) Start(fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("port", ol.operation.Port.DevicePath),
		zap.Int("baud_rate", int(ol.operation.Port.BaudRate)),
		zap.String("file", ol.operation.File),
	}, fields...)

	ol.logger.Info("Operation started", allFields...)
}

// Finish records the outcome on the operation and logs it
func (ol *OperationLogger) Finish(exchanges int, err error) {
	ol.operation.Complete(exchanges, err)

	fields := []zap.Field{
		zap.Duration("duration", ol.operation.Duration()),
		zap.Int("exchanges", exchanges),
		zap.String("status", string(ol.operation.Status)),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		ol.logger.Error("Operation failed", fields...)
		return
	}
	ol.logger.Info("Operation completed successfully", fields...)
}

// CloseLogger flushes buffered log entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
