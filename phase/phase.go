// Package phase defines the lifecycle phases of a wrapped call and the
// built-in metadata kinds a message template can reference in each phase.
package phase

// Kind identifies a point in a call's lifecycle where a log record may be
// emitted.
type Kind int

const (
	// Enter fires before the wrapped function body runs.
	Enter Kind = iota
	// Exit fires after the wrapped function returns normally.
	Exit
	// Error fires after the wrapped function fails, if the failure matches
	// the phase's filter.
	Error
)

// String returns the phase name as used in error messages.
func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Metadata identifies one of the built-in values the engine can expose to a
// template. Metadata references are written with a leading '@' in templates,
// e.g. {@time}.
type Metadata int

const (
	// MetaPathname is the source file of the wrapped function.
	MetaPathname Metadata = iota
	// MetaLine is the source line of the wrapped function.
	MetaLine
	// MetaLogger is the logger name the record is emitted under.
	MetaLogger
	// MetaFunc describes the wrapped function (name, file, line).
	MetaFunc
	// MetaTime is the elapsed wall time of the call.
	MetaTime
	// MetaRet is the wrapped function's return value. In the error phase it
	// is the configured fallback value and is only available when one is
	// declared.
	MetaRet
	// MetaErr is the failure observed by the error phase.
	MetaErr
	// MetaTraceback is the captured call stack, oldest frame first.
	MetaTraceback

	metadataCount
)

var metadataNames = [metadataCount]string{
	MetaPathname:  "pathname",
	MetaLine:      "line",
	MetaLogger:    "logger",
	MetaFunc:      "func",
	MetaTime:      "time",
	MetaRet:       "ret",
	MetaErr:       "err",
	MetaTraceback: "traceback",
}

// Name returns the metadata name as written in templates, without the '@'
// marker.
func (m Metadata) Name() string {
	if m < 0 || m >= metadataCount {
		return "unknown"
	}
	return metadataNames[m]
}

// String returns the metadata reference as written in templates.
func (m Metadata) String() string {
	return "@" + m.Name()
}

// MetadataByName looks up a metadata kind by its template name (without the
// '@' marker).
func MetadataByName(name string) (Metadata, bool) {
	for m, n := range metadataNames {
		if n == name {
			return Metadata(m), true
		}
	}
	return 0, false
}

// availability is the fixed table of which metadata kinds each phase may
// reference. MetaRet in the error phase is conditional and handled in Allows.
var availability = [metadataCount][3]bool{
	//             enter  exit   error
	MetaPathname:  {true, true, true},
	MetaLine:      {true, true, true},
	MetaLogger:    {true, true, true},
	MetaFunc:      {true, true, true},
	MetaTime:      {false, true, true},
	MetaRet:       {false, true, false}, // error: see Allows
	MetaErr:       {false, false, true},
	MetaTraceback: {false, false, true},
}

// Allows reports whether metadata m may be referenced in phase k.
//
// retAvailable declares that the error phase has a return value to expose:
// the engine sets it when a fallback return is configured, in which case the
// wrapped function's failure is suppressed and the fallback is both returned
// to the caller and visible as {@ret}.
func (k Kind) Allows(m Metadata, retAvailable bool) bool {
	if m < 0 || m >= metadataCount || k < Enter || k > Error {
		return false
	}
	if k == Error && m == MetaRet {
		return retAvailable
	}
	return availability[m][k]
}
