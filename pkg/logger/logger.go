// Package logger provides a centralized logging configuration for FilePulse
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Global logger instance
	pulseLogger *zap.Logger

	mu sync.Mutex
)

// LogConfig holds the logging configuration
type LogConfig struct {
	Level       string
	OutputPath  string
	MaxSize     int // megabytes
	MaxBackups  int
	MaxAge      int // days
	Compress    bool
	Development bool
	EnableJSON  bool
}

// DefaultLogPath returns the default rotating log file location
func DefaultLogPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".filepulse", "logs", "filepulse.log")
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *LogConfig {
	return &LogConfig{
		Level:       "info",
		OutputPath:  DefaultLogPath(),
		MaxSize:     100,
		MaxBackups:  5,
		MaxAge:      30,
		Compress:    true,
		Development: false,
		EnableJSON:  false,
	}
}

// Build creates a logger from cfg without touching the global instance
func Build(cfg *LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch {
	case cfg.EnableJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case cfg.Development:
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
		return nil, err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.OutputPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	writers := []zapcore.WriteSyncer{zapcore.AddSync(fileWriter)}

	// In development mode, also log to console
	if cfg.Development {
		writers = append(writers, zapcore.AddSync(os.Stderr))
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(writers...),
		zap.NewAtomicLevelAt(level),
	)

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...), nil
}

// Initialize sets up the global logger with the given configuration
func Initialize(cfg *LogConfig) error {
	l, err := Build(cfg)
	if err != nil {
		return err
	}
	Replace(l)
	return nil
}

// Replace swaps the global logger, e.g. for zap.NewNop in tests
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	pulseLogger = l
	zap.ReplaceGlobals(l)
}

// Get returns the global logger instance
func Get() *zap.Logger {
	mu.Lock()
	l := pulseLogger
	mu.Unlock()
	if l != nil {
		return l
	}

	// Initialize with default config if not already initialized
	if err := Initialize(DefaultConfig()); err != nil {
		Replace(zap.NewNop())
	}

	mu.Lock()
	defer mu.Unlock()
	return pulseLogger
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.Lock()
	l := pulseLogger
	mu.Unlock()
	if l != nil {
		return l.Sync()
	}
	return nil
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

// WithSession returns base tagged with a watch session ID. A nil base uses
// the global logger.
func WithSession(base *zap.Logger, sessionID string) *zap.Logger {
	if base == nil {
		base = Get()
	}
	return base.With(zap.String("session_id", sessionID))
}
