// Package provider defines user-supplied computed values for log templates.
//
// A provider declares, once, which values it needs as inputs (parameters,
// @metadata, or other providers' >computed names) and which named methods
// it offers. Template fields written {>method} resolve through a provider.
// A fresh instance is built per log record that needs it, seeded only with
// the inputs it declared; a method runs at most once per call however many
// times its name is referenced.
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Spec is a provider's fixed, declarative description. It is read at
// validation time and never re-read during calls.
type Spec struct {
	// Name identifies the provider in error messages and cache keys.
	Name string
	// Inputs are the arg-names this provider may read, in template
	// notation: bare names for parameters, "@name" for metadata, ">name"
	// for other computed values.
	Inputs []string
	// Methods are the referenceable computed names this provider defines.
	// Names beginning with '_' are private and are never registered.
	Methods []string
}

// Args carries the seeded input values for one instance. Keys use the same
// notation as Spec.Inputs.
type Args map[string]any

// Get returns the seeded value for an input name.
func (a Args) Get(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

// String returns the seeded value rendered as a string, or "" when absent.
func (a Args) String(name string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Instance is one record-scoped instantiation of a provider.
type Instance interface {
	// Compute produces the value of one named method.
	Compute(method string) (any, error)
}

// Provider is the capability a computed-value supplier implements.
type Provider interface {
	Spec() Spec
	// New builds a fresh instance seeded with exactly the declared inputs.
	New(args Args) (Instance, error)
}

// Func computes one value from the seeded inputs.
type Func func(Args) (any, error)

// Funcs declares a provider from a fixed name→function table. This is the
// common way to supply computed values: no subclassing, no open-ended
// dispatch, just a table frozen at construction.
func Funcs(name string, inputs []string, methods map[string]Func) Provider {
	spec := Spec{Name: name, Inputs: append([]string(nil), inputs...)}
	table := make(map[string]Func, len(methods))
	for m, fn := range methods {
		table[m] = fn
		spec.Methods = append(spec.Methods, m)
	}
	sort.Strings(spec.Methods)
	return &funcProvider{spec: spec, methods: table}
}

type funcProvider struct {
	spec    Spec
	methods map[string]Func
}

func (p *funcProvider) Spec() Spec { return p.spec }

func (p *funcProvider) New(args Args) (Instance, error) {
	return &funcInstance{args: args, methods: p.methods}, nil
}

type funcInstance struct {
	args    Args
	methods map[string]Func
}

func (i *funcInstance) Compute(method string) (any, error) {
	fn, ok := i.methods[method]
	if !ok {
		return nil, fmt.Errorf("provider: no method %q", method)
	}
	return fn(i.args)
}

// Registry maps computed method names to their owning provider. It is
// built once at validation time and is safe for unsynchronized concurrent
// reads afterwards.
type Registry struct {
	providers []Provider
	byMethod  map[string]Provider

	once    sync.Once
	methods []string
}

// NewRegistry builds a registry over the given providers. When two
// providers define the same method name, the later provider wins, matching
// the override order of the declaration surface. Private names (leading
// '_') are skipped and never become referenceable.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{byMethod: make(map[string]Provider)}
	for _, p := range providers {
		spec := p.Spec()
		if spec.Name == "" {
			return nil, fmt.Errorf("provider: provider with empty name")
		}
		for _, m := range spec.Methods {
			if m == "" {
				return nil, fmt.Errorf("provider %q: empty method name", spec.Name)
			}
			if strings.HasPrefix(m, "_") {
				continue
			}
			r.byMethod[m] = p
		}
		r.providers = append(r.providers, p)
	}
	return r, nil
}

// Owner returns the provider defining the computed method name.
func (r *Registry) Owner(method string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byMethod[method]
	return p, ok
}

// Methods returns the referenceable computed names, sorted.
func (r *Registry) Methods() []string {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		for m := range r.byMethod {
			r.methods = append(r.methods, m)
		}
		sort.Strings(r.methods)
	})
	return r.methods
}

// Providers returns the registered providers in declaration order.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	return r.providers
}
