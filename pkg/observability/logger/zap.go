package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is a Logger implementation using uber-go/zap for structured logging.
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	// JSONFormat outputs structured JSON logs
	JSONFormat LogFormat = "json"
	// TextFormat outputs human-readable console logs
	TextFormat LogFormat = "text"
)

// Config holds configuration for the logger
type Config struct {
	Level  LogLevel
	Format LogFormat
	// Output receives log entries. Defaults to stderr so command output on stdout stays clean.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  InfoLevel,
		Format: JSONFormat,
	}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewZapLogger creates a new ZapLogger with the specified configuration.
// Unknown levels fall back to info.
func NewZapLogger(cfg Config) (*ZapLogger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case JSONFormat, "":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case TextFormat:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zapLevel(cfg.Level))
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
	}, nil
}

// NewNop returns a logger discarding every entry.
func NewNop() *ZapLogger {
	logger := zap.NewNop()
	return &ZapLogger{logger: logger, sugar: logger.Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// With creates a child logger with additional key-value pairs.
func (l *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{
		logger: l.logger,
		sugar:  l.sugar.With(args...),
	}
}

// WithContext adds the query id and the active trace id, when present, to every entry.
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	var fields []any
	if id := QueryIDFromContext(ctx); id != "" {
		fields = append(fields, "query_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Sync flushes any buffered log entries. Applications should call this before exiting.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// ParseLogLevel converts a string to a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch level {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", level)
	}
}

// ParseLogFormat converts a string to a LogFormat
func ParseLogFormat(format string) (LogFormat, error) {
	switch format {
	case "json":
		return JSONFormat, nil
	case "text", "console":
		return TextFormat, nil
	default:
		return "", fmt.Errorf("invalid log format: %s", format)
	}
}
