package dogging

import (
	"time"

	"github.com/google/uuid"
)

// Call invokes the wrapped function with the configured phases around it.
//
// The enter record (if configured) is emitted before the function runs. On
// a normal return the exit record is emitted; on a failure that the error
// phase's filters accept, the error record is emitted instead. Exactly one
// of exit/error fires per call, never both. A failure the filters reject
// propagates unchanged and unlogged.
//
// Errors are swallowed and replaced by the fallback return only when a
// fallback was configured and the failure was accepted by the filters.
// Panics are always re-raised after logging.
func (f *Func) Call(args ...any) ([]any, error) {
	d := f.dog
	ctx := &callContext{f: f, rawArgs: args}
	if d.callID {
		ctx.callID = uuid.NewString()
	}

	if d.enter != nil {
		f.emit(ctx, d.enter)
	}

	if f.needsTime {
		ctx.start = time.Now()
	}
	results, failure := f.run(ctx)
	ctx.finish()

	if failure == nil {
		ctx.ret = retValue(results)
		if d.exit != nil {
			f.emit(ctx, d.exit)
		}
		return results, nil
	}

	ctx.failure = failure
	matched := matchesFilter(d.errFilters(), *failure)
	if matched {
		// The fallback only replaces error returns; a panic re-raises, so
		// {@ret} must not render a value the caller never receives.
		if d.hasFallback && failure.Panic == nil {
			ctx.ret = d.fallback
		}
		if d.errPhase != nil {
			f.emit(ctx, d.errPhase)
		}
	}
	if failure.Panic != nil {
		panic(failure.Panic)
	}
	if matched && d.hasFallback {
		return fallbackResults(d.fallback), nil
	}
	return results, failure.Err
}

// run executes the callable with panic containment. A recovered panic is
// returned as a Failure so the caller logs it through the error phase
// before re-raising.
func (f *Func) run(ctx *callContext) (results []any, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			if f.panicFrames {
				// Skip runtime.Callers, this deferred func, and the
				// runtime's panic machinery.
				ctx.frames = captureFrames(3)
			}
			failure = &Failure{Panic: r}
		}
	}()
	results, err := f.call(ctx.rawArgs)
	if err != nil {
		if f.errFrames {
			ctx.frames = captureFrames(2)
		}
		return results, &Failure{Err: err}
	}
	return results, nil
}

func (f *Func) emit(ctx *callContext, spec *phaseSpec) {
	env := newRenderEnv(ctx, spec)
	msg, err := spec.tmpl.Render(env.resolve)
	if err != nil {
		f.dog.renderErr(err)
	}
	f.dog.sink.Emit(spec.level, msg, env.buildAttrs())
}

// retValue collapses a result list to the value {@ret} renders: the single
// result for one-result functions, nil for none, the list itself otherwise.
func retValue(results []any) any {
	switch len(results) {
	case 0:
		return nil
	case 1:
		return results[0]
	default:
		return results
	}
}

// fallbackResults shapes a configured fallback as a result list. A []any
// fallback stands for the full result list of a multi-result function.
func fallbackResults(fallback any) []any {
	if fallback == nil {
		return nil
	}
	if rs, ok := fallback.([]any); ok {
		return rs
	}
	return []any{fallback}
}
