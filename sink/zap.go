package sink

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZap adapts a *zap.Logger to the Sink interface. Attributes become zap
// fields, sorted by key so encoder output is deterministic. LevelFatal maps
// to zap's Error level: exiting the process is a policy decision this
// engine never makes for its host.
func NewZap(l *zap.Logger) Sink {
	return &zapSink{l: l}
}

type zapSink struct {
	l *zap.Logger
}

func (s *zapSink) Emit(level Level, message string, attrs map[string]any) {
	if s.l == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs))
	for _, k := range sortedKeys(attrs) {
		fields = append(fields, zap.Any(k, attrs[k]))
	}
	if ce := s.l.Check(zapLevel(level), message); ce != nil {
		ce.Write(fields...)
	}
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError, LevelFatal:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
