// Package sink is the boundary this engine emits through: a level, a
// rendered message and a bag of extra attributes. Adapters are provided for
// slog, zap, NDJSON files, and a secret-scrubbing wrapper; anything else
// can implement Sink in a few lines.
package sink

import (
	"fmt"
	"strings"
)

// Level represents the severity of an emitted record.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch {
	case strings.EqualFold(s, "debug"):
		return LevelDebug, nil
	case strings.EqualFold(s, "info"):
		return LevelInfo, nil
	case strings.EqualFold(s, "warn"), strings.EqualFold(s, "warning"):
		return LevelWarn, nil
	case strings.EqualFold(s, "error"):
		return LevelError, nil
	case strings.EqualFold(s, "fatal"), strings.EqualFold(s, "critical"):
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("sink: unknown level %q", s)
	}
}

// Sink receives finished log records. Emit must not panic; failures inside
// a sink are the sink's own concern, never the engine's.
type Sink interface {
	Emit(level Level, message string, attrs map[string]any)
}

// Func adapts a plain function to the Sink interface.
type Func func(level Level, message string, attrs map[string]any)

// Emit calls f.
func (f Func) Emit(level Level, message string, attrs map[string]any) {
	f(level, message, attrs)
}

// Discard drops every record.
var Discard Sink = Func(func(Level, string, map[string]any) {})

// Multi fans every record out to all of the given sinks, in order.
func Multi(sinks ...Sink) Sink {
	out := append([]Sink(nil), sinks...)
	return Func(func(level Level, message string, attrs map[string]any) {
		for _, s := range out {
			s.Emit(level, message, attrs)
		}
	})
}
