package sink

import (
	"context"
	"log/slog"
	"sort"
)

// NewSlog adapts a *slog.Logger to the Sink interface. Attributes become
// slog attrs, sorted by key so record layout is deterministic.
func NewSlog(l *slog.Logger) Sink {
	return &slogSink{l: l}
}

// Default emits through slog.Default.
func Default() Sink {
	return &slogSink{}
}

type slogSink struct {
	l *slog.Logger
}

func (s *slogSink) Emit(level Level, message string, attrs map[string]any) {
	l := s.l
	if l == nil {
		l = slog.Default()
	}
	args := make([]any, 0, len(attrs)*2)
	for _, k := range sortedKeys(attrs) {
		args = append(args, k, attrs[k])
	}
	l.Log(context.Background(), slogLevel(level), message, args...)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		// slog has no fatal; keep the record, raise the severity.
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

func sortedKeys(attrs map[string]any) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
