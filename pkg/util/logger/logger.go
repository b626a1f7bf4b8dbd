package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger represents a component for writing messages to log.
//
// Logger prioritizes all messages into different severity levels. Each log
// record contains timestamp, level, message and optional structured context.
// Output is designed for human - rather than machine - consumption: core
// entry data is serialized in a plain-text format, structured context as
// JSON.
//
// Instances MUST be constructed with New or Nop.
type Logger struct {
	log *zap.Logger

	lvl zap.AtomicLevel
}

// New constructs ready-to-go Logger with the given minimum severity level.
// Messages of lower priority are not recorded.
func New(lvl Level) *Logger {
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl.zapLevel())
	c.Encoding = "console"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := c.Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.FatalLevel)),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to build zap logger: %v", err))
	}

	return &Logger{
		log: log,
		lvl: c.Level,
	}
}

// Nop returns Logger which drops all records.
func Nop() *Logger {
	return &Logger{
		log: zap.NewNop(),
		lvl: zap.NewAtomicLevel(),
	}
}

// SetLevel changes the minimum severity level of the Logger and all loggers
// derived from it via WithContext. Safe for concurrent use.
func (x *Logger) SetLevel(lvl Level) {
	x.lvl.SetLevel(lvl.zapLevel())
}

func convertContext(ctx []Field) []zap.Field {
	if len(ctx) == 0 {
		return nil
	}

	res := make([]zap.Field, len(ctx))

	for i := 0; i < len(ctx); i++ {
		res[i] = ctx[i].f
	}

	return res
}

// Debug logs a message at LevelDebug level with optional context. If Logger
// has minimum priority setting higher than the LevelDebug, message is not
// recorded.
func (x *Logger) Debug(msg string, ctx ...Field) {
	x.log.Debug(msg, convertContext(ctx)...)
}

// Info behaves like Debug but at LevelInfo level.
func (x *Logger) Info(msg string, ctx ...Field) {
	x.log.Info(msg, convertContext(ctx)...)
}

// Warn behaves like Debug but at LevelWarn level.
func (x *Logger) Warn(msg string, ctx ...Field) {
	x.log.Warn(msg, convertContext(ctx)...)
}

// Error behaves like Debug but at LevelError level.
func (x *Logger) Error(msg string, ctx ...Field) {
	x.log.Error(msg, convertContext(ctx)...)
}

// WithContext returns new Logger instance which inherits all properties
// of the parent Logger, and adds given context to all records.
//
// Parent Logger MUST be correctly initialized.
func (x *Logger) WithContext(ctx ...Field) *Logger {
	if len(ctx) == 0 {
		return x
	}

	return &Logger{
		log: x.log.With(convertContext(ctx)...),
		lvl: x.lvl,
	}
}
