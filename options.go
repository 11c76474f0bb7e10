package dogging

import (
	"fmt"
	"os"

	"github.com/reuvenpo/dogging/phase"
	"github.com/reuvenpo/dogging/provider"
	"github.com/reuvenpo/dogging/resolve"
	"github.com/reuvenpo/dogging/sink"
	"github.com/reuvenpo/dogging/template"
)

// Ref marks an extra-attribute value as a reference to be resolved per
// call, using the same field-name notation as templates: Ref("amount"),
// Ref("@time"), Ref(">elapsed"), Ref("req.ID").
type Ref string

// Option configures a Dog.
type Option func(*dogConfig) error

// PhaseOption configures one phase of a Dog.
type PhaseOption func(*phaseConfig) error

// dogConfig collects options before compilation.
type dogConfig struct {
	phases          map[phase.Kind]*phaseConfig
	sink            sink.Sink
	loggerName      string
	fallback        any
	hasFallback     bool
	callID          bool
	renderErr       func(error)
	globalProviders []provider.Provider
	globalAttrs     map[string]any
}

type phaseConfig struct {
	kind      phase.Kind
	level     sink.Level
	template  string
	providers []provider.Provider
	attrs     map[string]any
	filters   []Filter
}

// phaseSpec is a compiled, validated-except-for-signature phase. It is
// frozen after New and safe for unsynchronized concurrent reads.
type phaseSpec struct {
	kind     phase.Kind
	level    sink.Level
	tmpl     *template.Template
	registry *provider.Registry
	filters  []Filter
	attrs    map[string]any                // literals
	attrRefs map[string]template.Reference // Ref-valued attrs, parsed
	analysis *resolve.Analysis
}

// Dog is a validated, immutable logging decoration: up to one phase spec
// per lifecycle phase, a sink, and call-wide options. One Dog can wrap any
// number of functions; wrapping re-validates only the parameter references
// against each new signature.
type Dog struct {
	enter    *phaseSpec
	exit     *phaseSpec
	errPhase *phaseSpec

	sink        sink.Sink
	loggerName  string
	fallback    any
	hasFallback bool
	callID      bool
	renderErr   func(error)
}

func phaseOpt(kind phase.Kind, tmpl string, opts []PhaseOption) Option {
	return func(c *dogConfig) error {
		if _, dup := c.phases[kind]; dup {
			return fmt.Errorf("dogging: %s phase specified twice", kind)
		}
		pc := &phaseConfig{kind: kind, level: sink.LevelInfo, template: tmpl}
		for _, opt := range opts {
			if err := opt(pc); err != nil {
				return err
			}
		}
		c.phases[kind] = pc
		return nil
	}
}

// Enter attaches a message template to the enter phase.
func Enter(tmpl string, opts ...PhaseOption) Option {
	return phaseOpt(phase.Enter, tmpl, opts)
}

// Exit attaches a message template to the exit phase.
func Exit(tmpl string, opts ...PhaseOption) Option {
	return phaseOpt(phase.Exit, tmpl, opts)
}

// Error attaches a message template to the error phase.
func Error(tmpl string, opts ...PhaseOption) Option {
	return phaseOpt(phase.Error, tmpl, opts)
}

// AtLevel sets the phase's log level. The default for every phase is
// sink.LevelInfo.
func AtLevel(l sink.Level) PhaseOption {
	return func(pc *phaseConfig) error {
		pc.level = l
		return nil
	}
}

// Catch restricts which failures the error phase observes. Valid on the
// error phase only; the default is to catch everything.
func Catch(filters ...Filter) PhaseOption {
	return func(pc *phaseConfig) error {
		if pc.kind != phase.Error {
			return fmt.Errorf("dogging: Catch is only valid on the %s phase, used on %s", phase.Error, pc.kind)
		}
		pc.filters = append(pc.filters, filters...)
		return nil
	}
}

// Providers scopes computed-value providers to one phase's templates.
func Providers(ps ...provider.Provider) PhaseOption {
	return func(pc *phaseConfig) error {
		pc.providers = append(pc.providers, ps...)
		return nil
	}
}

// Attrs attaches extra attributes to one phase's records. Values of type
// Ref are resolved per call; everything else is emitted literally.
func Attrs(attrs map[string]any) PhaseOption {
	return func(pc *phaseConfig) error {
		if pc.attrs == nil {
			pc.attrs = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			pc.attrs[k] = v
		}
		return nil
	}
}

// WithSink directs emissions to s. The default sink logs through
// slog.Default.
func WithSink(s sink.Sink) Option {
	return func(c *dogConfig) error {
		if s == nil {
			return fmt.Errorf("dogging: nil sink")
		}
		c.sink = s
		return nil
	}
}

// WithLogger overrides the logger name exposed as {@logger}. The default
// is the wrapped function's package path.
func WithLogger(name string) Option {
	return func(c *dogConfig) error {
		c.loggerName = name
		return nil
	}
}

// WithFallback suppresses matching error failures: the wrapped call
// returns v with a nil error instead of propagating, and {@ret} becomes
// legal in the error phase, resolving to v. Panics are never suppressed.
func WithFallback(v any) Option {
	return func(c *dogConfig) error {
		c.fallback = v
		c.hasFallback = true
		return nil
	}
}

// WithCallID attaches a fresh UUID per invocation as a "call_id"
// attribute on every record the call emits.
func WithCallID() Option {
	return func(c *dogConfig) error {
		c.callID = true
		return nil
	}
}

// WithRenderErrorHandler receives call-time rendering failures (the
// attribute-resolution class). The record is still emitted, with a
// placeholder for the failed field; the default handler writes a warning
// to stderr.
func WithRenderErrorHandler(fn func(error)) Option {
	return func(c *dogConfig) error {
		if fn == nil {
			return fmt.Errorf("dogging: nil render error handler")
		}
		c.renderErr = fn
		return nil
	}
}

// WithProviders registers computed-value providers for every phase.
func WithProviders(ps ...provider.Provider) Option {
	return func(c *dogConfig) error {
		c.globalProviders = append(c.globalProviders, ps...)
		return nil
	}
}

// WithAttrs attaches extra attributes to every phase's records.
func WithAttrs(attrs map[string]any) Option {
	return func(c *dogConfig) error {
		if c.globalAttrs == nil {
			c.globalAttrs = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			c.globalAttrs[k] = v
		}
		return nil
	}
}

// New builds and validates a Dog. Everything that can be checked without a
// function signature is checked here: template syntax, metadata
// availability per phase, computed names, provider input declarations and
// dependency cycles. Parameter references are checked at Wrap time.
func New(opts ...Option) (*Dog, error) {
	c := &dogConfig{
		phases: make(map[phase.Kind]*phaseConfig),
		sink:   sink.Default(),
		renderErr: func(err error) {
			fmt.Fprintf(os.Stderr, "dogging: render: %v\n", err)
		},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	d := &Dog{
		sink:        c.sink,
		loggerName:  c.loggerName,
		fallback:    c.fallback,
		hasFallback: c.hasFallback,
		callID:      c.callID,
		renderErr:   c.renderErr,
	}

	for kind, pc := range c.phases {
		spec, err := compilePhase(c, pc)
		if err != nil {
			return nil, err
		}
		switch kind {
		case phase.Enter:
			d.enter = spec
		case phase.Exit:
			d.exit = spec
		case phase.Error:
			d.errPhase = spec
		}
	}
	return d, nil
}

// MustNew is New for configurations known to be valid.
func MustNew(opts ...Option) *Dog {
	d, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func compilePhase(c *dogConfig, pc *phaseConfig) (*phaseSpec, error) {
	tmpl, err := template.Parse(pc.template)
	if err != nil {
		return nil, err
	}

	providers := append(append([]provider.Provider(nil), c.globalProviders...), pc.providers...)
	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}

	spec := &phaseSpec{
		kind:     pc.kind,
		level:    pc.level,
		tmpl:     tmpl,
		registry: registry,
		filters:  pc.filters,
		attrs:    make(map[string]any),
		attrRefs: make(map[string]template.Reference),
	}

	refs := append([]template.Reference(nil), tmpl.References()...)
	for _, attrs := range []map[string]any{c.globalAttrs, pc.attrs} {
		for name, v := range attrs {
			if r, ok := v.(Ref); ok {
				ref, err := template.ParseName(string(r))
				if err != nil {
					return nil, err
				}
				delete(spec.attrs, name)
				spec.attrRefs[name] = ref
				refs = append(refs, ref)
				continue
			}
			delete(spec.attrRefs, name)
			spec.attrs[name] = v
		}
	}

	analysis, err := resolve.Analyze(refs, pc.kind, registry, resolve.Options{
		RetAvailable: pc.kind == phase.Error && c.hasFallback,
	})
	if err != nil {
		return nil, err
	}
	spec.analysis = analysis
	return spec, nil
}

// specs returns the configured phase specs, nils skipped.
func (d *Dog) specs() []*phaseSpec {
	var out []*phaseSpec
	for _, s := range []*phaseSpec{d.enter, d.exit, d.errPhase} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// errFilters returns the error phase's filters, or nil (catch-all) when no
// error phase is configured.
func (d *Dog) errFilters() []Filter {
	if d.errPhase == nil {
		return nil
	}
	return d.errPhase.filters
}
