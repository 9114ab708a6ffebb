package core

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	With(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewLogger returns a JSON logger at the given level. Unknown levels fall back to info.
func NewLogger(level string) Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return NewNoopLogger()
	}
	return &zapLogger{s: l.Sugar()}
}

func NewNoopLogger() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}
