package dogging

import (
	"fmt"
	"reflect"

	"github.com/reuvenpo/dogging/inspect"
	"github.com/reuvenpo/dogging/phase"
)

// Callable is the generic shape of a wrapped function: positional arguments
// in, results out, with the trailing error (if the function declares one)
// split off. A Callable may panic; the dispatcher recovers, logs, and
// re-panics.
type Callable func(args []any) ([]any, error)

// Func is a wrapped function. It is immutable after Wrap and safe for
// concurrent calls.
type Func struct {
	dog    *Dog
	sig    inspect.Signature
	binder inspect.Binder
	call   Callable

	needsTime   bool
	errFrames   bool
	panicFrames bool
}

func (f *Func) loggerName() string {
	if f.dog.loggerName != "" {
		return f.dog.loggerName
	}
	return f.sig.Package
}

// Signature returns the wrapped function's description.
func (f *Func) Signature() inspect.Signature { return f.sig }

// callable adapts Call to the Callable shape so a Func can itself be
// wrapped by further Dogs.
func (f *Func) callable() Callable {
	return func(args []any) ([]any, error) {
		return f.Call(args...)
	}
}

// Wrap attaches the configured phases to fn. params name fn's parameters in
// order; every parameter reference in every phase template is checked
// against them here, so a template naming a parameter fn does not have
// fails at decoration time, not at call time.
func (d *Dog) Wrap(fn any, params ...string) (*Func, error) {
	sig, err := inspect.Describe(fn, params...)
	if err != nil {
		return nil, err
	}
	call, err := reflectCallable(fn)
	if err != nil {
		return nil, err
	}
	return d.WrapCustom(sig, sig.Binder(), call)
}

// MustWrap is Wrap for package-level declarations; it panics on a
// decoration error.
func (d *Dog) MustWrap(fn any, params ...string) *Func {
	f, err := d.Wrap(fn, params...)
	if err != nil {
		panic(err)
	}
	return f
}

// WrapCustom attaches the configured phases to an already-described
// callable. It is the escape hatch for functions that cannot be expressed
// as a plain Go func value, and for map-bound argument conventions.
func (d *Dog) WrapCustom(sig inspect.Signature, binder inspect.Binder, call Callable) (*Func, error) {
	if call == nil {
		return nil, fmt.Errorf("dogging: nil callable")
	}
	if binder == nil {
		binder = sig.Binder()
	}
	f := &Func{dog: d, sig: sig, binder: binder, call: call}
	for _, spec := range d.specs() {
		if err := spec.analysis.CheckSignature(sig, spec.kind); err != nil {
			return nil, err
		}
		if spec.analysis.Needs(phase.MetaTime) {
			f.needsTime = true
		}
	}
	if ep := d.errPhase; ep != nil {
		f.errFrames = ep.analysis.Needs(phase.MetaTraceback)
	}
	f.panicFrames = f.errFrames
	return f, nil
}

// reflectCallable adapts an arbitrary func value to the Callable shape.
// A trailing error result is split out as the Callable's error; all other
// results are returned positionally.
func reflectCallable(fn any) (Callable, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("dogging: %T is not a function", fn)
	}
	nOut := t.NumOut()
	trailingErr := nOut > 0 && t.Out(nOut-1) == errorType

	return func(args []any) ([]any, error) {
		in, err := prepareArgs(t, args)
		if err != nil {
			return nil, err
		}
		out := v.Call(in)
		if trailingErr {
			errv := out[len(out)-1]
			out = out[:len(out)-1]
			results := valuesToAny(out)
			if !errv.IsNil() {
				return results, errv.Interface().(error)
			}
			return results, nil
		}
		return valuesToAny(out), nil
	}, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// prepareArgs converts the dispatcher's []any into reflect call values,
// checking arity and assignability up front so reflect.Call cannot panic on
// a malformed argument list.
func prepareArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	nIn := t.NumIn()
	fixed := nIn
	if t.IsVariadic() {
		fixed = nIn - 1
		if len(args) < fixed {
			return nil, fmt.Errorf("dogging: call takes at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != nIn {
		return nil, fmt.Errorf("dogging: call takes %d arguments, got %d", nIn, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var want reflect.Type
		if i < fixed {
			want = t.In(i)
		} else {
			want = t.In(fixed).Elem()
		}
		rv, err := argValue(a, want, i)
		if err != nil {
			return nil, err
		}
		in[i] = rv
	}
	return in, nil
}

func argValue(a any, want reflect.Type, i int) (reflect.Value, error) {
	if a == nil {
		switch want.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("dogging: argument %d is nil, want %s", i, want)
	}
	rv := reflect.ValueOf(a)
	if !rv.Type().AssignableTo(want) {
		if rv.Type().ConvertibleTo(want) && rv.Kind() == want.Kind() {
			return rv.Convert(want), nil
		}
		return reflect.Value{}, fmt.Errorf("dogging: argument %d is %s, want %s", i, rv.Type(), want)
	}
	return rv, nil
}

func valuesToAny(vs []reflect.Value) []any {
	if len(vs) == 0 {
		return nil
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v.Interface()
	}
	return out
}

// WrapFunc wraps fn and returns it as a Callable again, so further Dogs can
// stack around it. Parameter names carry through unchanged.
func (d *Dog) WrapFunc(fn any, params ...string) (Callable, inspect.Signature, error) {
	f, err := d.Wrap(fn, params...)
	if err != nil {
		return nil, inspect.Signature{}, err
	}
	return f.callable(), f.sig, nil
}

// Stack composes several Dogs around one function. The first Dog is the
// outermost: its enter fires first and its exit or error fires last.
func Stack(fn any, params []string, dogs ...*Dog) (*Func, error) {
	if len(dogs) == 0 {
		return nil, fmt.Errorf("dogging: Stack needs at least one Dog")
	}
	inner, err := dogs[len(dogs)-1].Wrap(fn, params...)
	if err != nil {
		return nil, err
	}
	for i := len(dogs) - 2; i >= 0; i-- {
		inner, err = dogs[i].WrapCustom(inner.sig, inner.binder, inner.callable())
		if err != nil {
			return nil, err
		}
	}
	return inner, nil
}

// Wrap0 through Wrap3 are typed fronts over Wrap for the common arities.
// They keep the wrapped function's signature intact for callers, at the
// cost of a small per-call boxing of arguments and results.

func Wrap0[R any](d *Dog, fn func() (R, error)) (func() (R, error), error) {
	f, err := d.Wrap(fn)
	if err != nil {
		return nil, err
	}
	return func() (R, error) {
		out, err := f.Call()
		return retAs[R](out), err
	}, nil
}

func Wrap1[A, R any](d *Dog, fn func(A) (R, error), aName string) (func(A) (R, error), error) {
	f, err := d.Wrap(fn, aName)
	if err != nil {
		return nil, err
	}
	return func(a A) (R, error) {
		out, err := f.Call(a)
		return retAs[R](out), err
	}, nil
}

func Wrap2[A, B, R any](d *Dog, fn func(A, B) (R, error), aName, bName string) (func(A, B) (R, error), error) {
	f, err := d.Wrap(fn, aName, bName)
	if err != nil {
		return nil, err
	}
	return func(a A, b B) (R, error) {
		out, err := f.Call(a, b)
		return retAs[R](out), err
	}, nil
}

func Wrap3[A, B, C, R any](d *Dog, fn func(A, B, C) (R, error), aName, bName, cName string) (func(A, B, C) (R, error), error) {
	f, err := d.Wrap(fn, aName, bName, cName)
	if err != nil {
		return nil, err
	}
	return func(a A, b B, c C) (R, error) {
		out, err := f.Call(a, b, c)
		return retAs[R](out), err
	}, nil
}

func retAs[R any](out []any) (r R) {
	if len(out) == 1 {
		if v, ok := out[0].(R); ok {
			return v
		}
	}
	return r
}
