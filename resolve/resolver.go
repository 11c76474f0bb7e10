// Package resolve validates reference sets against a function signature, a
// phase, and a computed-provider registry. Validation runs once, at
// decoration time; any misconfiguration surfaces immediately, with the
// offending reference name, its namespace and the phase, before the wrapped
// function can ever run.
package resolve

import (
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/reuvenpo/dogging/inspect"
	"github.com/reuvenpo/dogging/phase"
	"github.com/reuvenpo/dogging/provider"
	"github.com/reuvenpo/dogging/template"
)

// Options tune validation for one phase spec.
type Options struct {
	// RetAvailable declares that the error phase exposes a return value
	// (a fallback return is configured), which makes {@ret} legal there.
	RetAvailable bool
}

// Analysis is the validated need-set of one phase: everything the phase's
// template and its providers' declared inputs may read, transitively. The
// dispatcher uses it to decide what to capture before and after the call;
// nothing outside the analysis is ever computed.
type Analysis struct {
	// Parameters are the needed parameter references, de-duplicated.
	Parameters []template.Reference
	// Metadata are the needed metadata kinds, de-duplicated.
	Metadata []phase.Metadata
	// Computed are the method names the template itself references.
	Computed []string
}

// Needs reports whether the phase requires the given metadata kind,
// directly or through a provider input.
func (a *Analysis) Needs(m phase.Metadata) bool {
	if a == nil {
		return false
	}
	for _, have := range a.Metadata {
		if have == m {
			return true
		}
	}
	return false
}

// NeedsParameters reports whether any bound argument is read at all.
func (a *Analysis) NeedsParameters() bool {
	return a != nil && len(a.Parameters) > 0
}

// Analyze validates every signature-independent rule for one phase's
// reference set and returns its transitive need-set. Parameter references
// are collected here and checked against a concrete signature separately
// (see CheckSignature), so one phase spec can be validated once and then
// bound to many functions.
func Analyze(refs []template.Reference, kind phase.Kind, reg *provider.Registry, opts Options) (*Analysis, error) {
	a := &Analysis{}
	seenParam := make(map[string]bool)
	seenMeta := make(map[phase.Metadata]bool)
	seenMethod := make(map[string]bool)
	expanded := make(map[string]bool)

	var visit func(ref template.Reference, fromTemplate bool, stack []string) error
	visit = func(ref template.Reference, fromTemplate bool, stack []string) error {
		switch ref.Namespace {
		case template.Parameter:
			if !seenParam[ref.Raw] {
				seenParam[ref.Raw] = true
				a.Parameters = append(a.Parameters, ref)
			}
			return nil

		case template.Metadata:
			m, ok := phase.MetadataByName(ref.Name)
			if !ok {
				return &PhaseMetadataError{Ref: ref, Phase: kind, Reason: "no such metadata kind"}
			}
			if !kind.Allows(m, opts.RetAvailable) {
				reason := "not available in this phase"
				if kind == phase.Error && m == phase.MetaRet {
					reason = "only available when a fallback return is declared"
				}
				return &PhaseMetadataError{Ref: ref, Phase: kind, Reason: reason}
			}
			if !seenMeta[m] {
				seenMeta[m] = true
				a.Metadata = append(a.Metadata, m)
			}
			return nil

		case template.Computed:
			owner, ok := reg.Owner(ref.Name)
			if !ok {
				return &UnknownComputedNameError{
					Ref:        ref,
					Phase:      kind,
					Suggestion: closestMatch(ref.Name, reg.Methods()),
				}
			}
			spec := owner.Spec()
			for _, name := range stack {
				if name == spec.Name {
					return &CyclicComputedReferenceError{
						Ref:   ref,
						Phase: kind,
						Cycle: append(append([]string(nil), stack...), spec.Name),
					}
				}
			}
			if !expanded[spec.Name] {
				for _, input := range spec.Inputs {
					iref, err := template.ParseName(input)
					if err != nil {
						return err
					}
					if err := visit(iref, false, append(stack, spec.Name)); err != nil {
						return err
					}
				}
				expanded[spec.Name] = true
			}
			if fromTemplate && !seenMethod[ref.Name] {
				seenMethod[ref.Name] = true
				a.Computed = append(a.Computed, ref.Name)
			}
			return nil
		}
		return nil
	}

	for _, ref := range refs {
		if err := visit(ref, true, nil); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// CheckSignature verifies that every parameter the analysis needs is
// declared by the wrapped function's signature.
func (a *Analysis) CheckSignature(sig inspect.Signature, kind phase.Kind) error {
	if a == nil {
		return nil
	}
	for _, ref := range a.Parameters {
		if !sig.Has(ref.Name) {
			return &UnknownParameterError{
				Ref:        ref,
				Phase:      kind,
				Function:   sig.Name,
				Suggestion: closestMatch(ref.Name, sig.Params),
			}
		}
	}
	return nil
}

// closestMatch finds the closest string match using fuzzy matching, for
// "did you mean" suggestions in validation errors.
func closestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		return ranks[0].Target
	}
	return ""
}
