package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is an enumeration of supported severity levels of log messages.
type Level uint8

const (
	// LevelDebug is a level of messages which are useful only when diagnosing
	// problems.
	LevelDebug Level = iota
	// LevelInfo is a level of messages which confirm that things are working
	// as expected.
	LevelInfo
	// LevelWarn is a level of messages which indicate that something
	// unexpected happened, but the application continues to work.
	LevelWarn
	// LevelError is a level of messages about serious problems which
	// prevented a particular function from proceeding.
	LevelError
)

func (x Level) zapLevel() zapcore.Level {
	switch x {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel decodes Level from its string representation: one of "debug",
// "info", "warn", "error" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported logger level %q", s)
	}
}
