package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stderr. Stdout is reserved for
// command output and the stdio tool protocol.
type ConsoleLogger struct {
	sugar *zap.SugaredLogger
}

// ParseLevel accepts debug, info and error.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info or error)", level)
}

func NewConsoleLogger(level string) (*ConsoleLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return newConsoleLogger(zapcore.Lock(os.Stderr), lvl), nil
}

func newConsoleLogger(out zapcore.WriteSyncer, level zapcore.Level) *ConsoleLogger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), out, level)
	return &ConsoleLogger{sugar: zap.New(core).Sugar()}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.sugar.Infof(msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.sugar.Errorf(msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.sugar.Debugf(msg, args...)
}

// Sync flushes buffered entries.
func (c *ConsoleLogger) Sync() error {
	return c.sugar.Sync()
}

// SilentLogger discards all log messages.
// Adapters fall back to it when no logger is configured.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// OrSilent returns l, or a SilentLogger when l is nil.
func OrSilent(l Logger) Logger {
	if l == nil {
		return NewSilentLogger()
	}
	return l
}
