package resolve

import (
	"fmt"
	"strings"

	"github.com/reuvenpo/dogging/phase"
	"github.com/reuvenpo/dogging/template"
)

// UnknownParameterError reports a parameter reference that names no
// declared parameter of the wrapped function.
type UnknownParameterError struct {
	Ref        template.Reference
	Phase      phase.Kind
	Function   string
	Suggestion string
}

func (e *UnknownParameterError) Error() string {
	msg := fmt.Sprintf("%s phase: unknown parameter reference %q: function %q has no such parameter",
		e.Phase, e.Ref.Raw, e.Function)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// PhaseMetadataError reports a metadata reference that the phase's
// availability table forbids, or a metadata name that does not exist.
type PhaseMetadataError struct {
	Ref    template.Reference
	Phase  phase.Kind
	Reason string
}

func (e *PhaseMetadataError) Error() string {
	return fmt.Sprintf("%s phase: metadata reference %q: %s", e.Phase, e.Ref.Raw, e.Reason)
}

// UnknownComputedNameError reports a computed reference that no registered
// provider defines.
type UnknownComputedNameError struct {
	Ref        template.Reference
	Phase      phase.Kind
	Suggestion string
}

func (e *UnknownComputedNameError) Error() string {
	msg := fmt.Sprintf("%s phase: unknown computed reference %q: no provider defines it", e.Phase, e.Ref.Raw)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", ">"+e.Suggestion)
	}
	return msg
}

// CyclicComputedReferenceError reports a dependency cycle among computed
// providers, found at validation time. Evaluation never checks for cycles.
type CyclicComputedReferenceError struct {
	Ref   template.Reference
	Phase phase.Kind
	Cycle []string // provider names, first repeated last
}

func (e *CyclicComputedReferenceError) Error() string {
	return fmt.Sprintf("%s phase: computed reference %q: provider dependency cycle: %s",
		e.Phase, e.Ref.Raw, strings.Join(e.Cycle, " -> "))
}
