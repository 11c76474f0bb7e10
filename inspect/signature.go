// Package inspect describes wrapped functions to the logging engine.
//
// Go reflection does not expose parameter names, so the caller declares
// them once at decoration time; everything else (arity, variadic shape,
// source position, the call-time name→value binding) is derived here. The
// engine speaks only to Signature and Binder, never to reflect directly.
package inspect

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Signature is the validation-time view of a wrapped function: its identity
// and the parameter names a template may reference.
type Signature struct {
	// Name is the function's short name, e.g. "Transfer".
	Name string
	// Package is the function's import path, used as the default logger
	// name.
	Package string
	// File and Line locate the function's definition.
	File string
	Line int
	// Params are the declared parameter names, in call order.
	Params []string
	// Variadic marks the last parameter as collecting the remaining
	// arguments into a slice.
	Variadic bool
	// CatchAll declares that the function accepts arbitrary named
	// arguments, so any parameter reference resolves. Used for map-bound
	// functions with a custom Binder.
	CatchAll bool
}

// Has reports whether a parameter name may be referenced against this
// signature.
func (s Signature) Has(name string) bool {
	if s.CatchAll {
		return true
	}
	for _, p := range s.Params {
		if p == name {
			return true
		}
	}
	return false
}

// Describe inspects fn and pairs it with the declared parameter names.
// fn must be a function and the name count must match its arity; these are
// definition-time mistakes and fail immediately.
func Describe(fn any, params ...string) (Signature, error) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return Signature{}, fmt.Errorf("inspect: %T is not a function", fn)
	}
	if len(params) != t.NumIn() {
		return Signature{}, fmt.Errorf("inspect: function takes %d parameters, %d names declared", t.NumIn(), len(params))
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p == "" {
			return Signature{}, fmt.Errorf("inspect: empty parameter name")
		}
		if seen[p] {
			return Signature{}, fmt.Errorf("inspect: duplicate parameter name %q", p)
		}
		seen[p] = true
	}

	sig := Signature{
		Params:   append([]string(nil), params...),
		Variadic: t.IsVariadic(),
	}
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		full := f.Name()
		sig.Package, sig.Name = splitFuncName(full)
		sig.File, sig.Line = f.FileLine(f.Entry())
	}
	return sig, nil
}

// splitFuncName splits a runtime function name like
// "github.com/acme/pay.Transfer" or "main.(*Server).handle" into import
// path and short name.
func splitFuncName(full string) (pkg, name string) {
	slash := strings.LastIndexByte(full, '/')
	dot := strings.IndexByte(full[slash+1:], '.')
	if dot < 0 {
		return "", full
	}
	dot += slash + 1
	return full[:dot], full[dot+1:]
}

// Binder produces the name→value table for one invocation. Bind is called
// lazily, and at most once per call, only when some active phase references
// a parameter.
type Binder interface {
	Bind(args []any) (map[string]any, error)
}

// Binder returns the default positional binder for the signature: argument
// i binds to Params[i], and a variadic tail collects into a []any under the
// last name.
func (s Signature) Binder() Binder {
	return positionalBinder{sig: s}
}

type positionalBinder struct {
	sig Signature
}

func (b positionalBinder) Bind(args []any) (map[string]any, error) {
	n := len(b.sig.Params)
	fixed := n
	if b.sig.Variadic {
		fixed = n - 1
	}
	if len(args) < fixed || (!b.sig.Variadic && len(args) != n) {
		return nil, fmt.Errorf("inspect: %s takes %d arguments, got %d", b.sig.Name, n, len(args))
	}
	bound := make(map[string]any, n)
	for i := 0; i < fixed; i++ {
		bound[b.sig.Params[i]] = args[i]
	}
	if b.sig.Variadic {
		rest := make([]any, len(args)-fixed)
		copy(rest, args[fixed:])
		bound[b.sig.Params[n-1]] = rest
	}
	return bound, nil
}

// MapBinder adapts functions that already take their arguments as a single
// name→value map: the call's first argument is used as the binding table
// directly. Pair it with a CatchAll signature.
type MapBinder struct{}

func (MapBinder) Bind(args []any) (map[string]any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("inspect: map binder takes exactly one argument, got %d", len(args))
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("inspect: map binder argument is %T, want map[string]any", args[0])
	}
	return m, nil
}
