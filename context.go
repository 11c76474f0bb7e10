package dogging

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/reuvenpo/dogging/phase"
	"github.com/reuvenpo/dogging/provider"
	"github.com/reuvenpo/dogging/template"
)

// FuncInfo is the value of a {@func} reference: it describes the wrapped
// function, and its fields are reachable through accessor paths, e.g.
// {@func.Name} or {@func.Package}.
type FuncInfo struct {
	Name    string
	Package string
	File    string
	Line    int
}

func (fi FuncInfo) String() string {
	if fi.Package == "" {
		return fi.Name
	}
	return fi.Package + "." + fi.Name
}

// Frame is one entry of a {@traceback} value, oldest frame first.
type Frame struct {
	File     string
	Line     int
	Function string
}

func (f Frame) String() string {
	return fmt.Sprintf("%s:%d (%s)", f.File, f.Line, f.Function)
}

// callContext is the per-invocation value store. It is created fresh at
// entry, shared by the enter phase, retained across the wrapped call, then
// populated with the outcome and shared by exactly one of exit/error. It is
// never reused and never crosses goroutines.
type callContext struct {
	f       *Func
	rawArgs []any
	callID  string

	bound   map[string]any
	bindErr error
	didBind bool

	start   time.Time
	elapsed time.Duration
	timed   bool

	ret     any
	failure *Failure
	frames  []Frame
}

func (c *callContext) boundArgs() (map[string]any, error) {
	if !c.didBind {
		c.didBind = true
		c.bound, c.bindErr = c.f.binder.Bind(c.rawArgs)
	}
	return c.bound, c.bindErr
}

func (c *callContext) finish() {
	if c.f.needsTime && !c.timed {
		c.elapsed = time.Since(c.start)
		c.timed = true
	}
}

// renderEnv is the per-phase rendering scope. Metadata and parameters are
// shared through the callContext; computed values are scoped here, so
// provider state never leaks between phases.
type renderEnv struct {
	ctx       *callContext
	spec      *phaseSpec
	instances map[string]provider.Instance
	values    map[string]any
}

func newRenderEnv(ctx *callContext, spec *phaseSpec) *renderEnv {
	return &renderEnv{
		ctx:       ctx,
		spec:      spec,
		instances: make(map[string]provider.Instance),
		values:    make(map[string]any),
	}
}

// resolve is the single operation rendering uses: reference in, value out.
func (e *renderEnv) resolve(ref template.Reference) (any, error) {
	base, err := e.baseValue(ref)
	if err != nil {
		return nil, err
	}
	return template.ApplyPath(base, ref)
}

func (e *renderEnv) baseValue(ref template.Reference) (any, error) {
	switch ref.Namespace {
	case template.Parameter:
		bound, err := e.ctx.boundArgs()
		if err != nil {
			return nil, err
		}
		v, ok := bound[ref.Name]
		if !ok {
			return nil, &template.AttributeResolutionError{
				Ref:    ref,
				Step:   template.Accessor{Name: ref.Name},
				Reason: "argument not bound for this call",
			}
		}
		return v, nil

	case template.Metadata:
		m, _ := phase.MetadataByName(ref.Name)
		return e.metadata(m), nil

	case template.Computed:
		return e.compute(ref.Name)
	}
	return nil, fmt.Errorf("dogging: unknown namespace for %q", ref.Raw)
}

// metadata values are either static per wrap or already captured on the
// context by the dispatcher; nothing here blocks or fails.
func (e *renderEnv) metadata(m phase.Metadata) any {
	f := e.ctx.f
	switch m {
	case phase.MetaPathname:
		return f.sig.File
	case phase.MetaLine:
		return f.sig.Line
	case phase.MetaLogger:
		return f.loggerName()
	case phase.MetaFunc:
		return FuncInfo{Name: f.sig.Name, Package: f.sig.Package, File: f.sig.File, Line: f.sig.Line}
	case phase.MetaTime:
		return e.ctx.elapsed
	case phase.MetaRet:
		return e.ctx.ret
	case phase.MetaErr:
		if e.ctx.failure != nil {
			return e.ctx.failure.Value()
		}
		return nil
	case phase.MetaTraceback:
		return e.ctx.frames
	default:
		return nil
	}
}

// compute evaluates one computed method, instantiating its provider on
// first use and caching both the instance and the method result for the
// rest of this phase's rendering. Cycles were excluded at validation time,
// so the recursion through resolve terminates.
func (e *renderEnv) compute(method string) (any, error) {
	if v, ok := e.values[method]; ok {
		return v, nil
	}
	owner, ok := e.spec.registry.Owner(method)
	if !ok {
		return nil, fmt.Errorf("dogging: computed %q has no provider", method)
	}
	spec := owner.Spec()
	inst, ok := e.instances[spec.Name]
	if !ok {
		args := make(provider.Args, len(spec.Inputs))
		for _, input := range spec.Inputs {
			iref, err := template.ParseName(input)
			if err != nil {
				return nil, err
			}
			v, err := e.resolve(iref)
			if err != nil {
				return nil, err
			}
			args[input] = v
		}
		var err error
		inst, err = owner.New(args)
		if err != nil {
			return nil, fmt.Errorf("dogging: provider %q: %w", spec.Name, err)
		}
		e.instances[spec.Name] = inst
	}
	v, err := inst.Compute(method)
	if err != nil {
		return nil, fmt.Errorf("dogging: computed %q: %w", method, err)
	}
	e.values[method] = v
	return v, nil
}

// buildAttrs assembles the record's extra attributes: literals, resolved
// Ref values, and the per-call correlation ID when enabled.
func (e *renderEnv) buildAttrs() map[string]any {
	spec := e.spec
	n := len(spec.attrs) + len(spec.attrRefs)
	if e.ctx.callID != "" {
		n++
	}
	if n == 0 {
		return nil
	}
	attrs := make(map[string]any, n)
	for name, v := range spec.attrs {
		attrs[name] = v
	}
	for name, ref := range spec.attrRefs {
		v, err := e.resolve(ref)
		if err != nil {
			e.ctx.f.dog.renderErr(err)
			v = "<unresolved " + ref.Raw + ">"
		}
		attrs[name] = v
	}
	if e.ctx.callID != "" {
		attrs["call_id"] = e.ctx.callID
	}
	return attrs
}

// captureFrames snapshots the current goroutine's stack, oldest frame
// first, with runtime internals, reflect call plumbing and this package's
// dispatch frames trimmed.
func captureFrames(skip int) []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	iter := runtime.CallersFrames(pcs[:n])
	var frames []Frame
	for {
		fr, more := iter.Next()
		if !dispatchFrame(fr.Function) {
			frames = append(frames, Frame{File: fr.File, Line: fr.Line, Function: fr.Function})
		}
		if !more {
			break
		}
	}
	// Oldest first.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}

// dispatchFrame reports whether a frame belongs to the runtime, reflect's
// call plumbing, or this package's own dispatch path rather than to the
// wrapped function.
func dispatchFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.HasPrefix(fn, "reflect.") ||
		strings.HasPrefix(fn, "github.com/reuvenpo/dogging.(*Func).") ||
		strings.HasPrefix(fn, "github.com/reuvenpo/dogging.reflectCallable")
}
