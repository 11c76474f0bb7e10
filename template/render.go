package template

import (
	"fmt"
	"reflect"
	"strings"
)

// Resolver produces the value a reference names for the call currently
// being rendered.
type Resolver func(Reference) (any, error)

// AttributeResolutionError reports that a declared-valid reference's access
// path could not be applied to the actual runtime value. It is the only
// error class this engine raises during a call; rendering degrades to a
// placeholder for the affected field instead of aborting the wrapped call.
type AttributeResolutionError struct {
	Ref    Reference
	Step   Accessor
	Reason string
}

func (e *AttributeResolutionError) Error() string {
	return fmt.Sprintf("reference %q: cannot apply %s: %s", e.Ref.Raw, e.Step, e.Reason)
}

// Render substitutes every replacement field using resolve. A field whose
// resolution fails renders as a placeholder; the first such failure is
// returned alongside the (complete) message so the host can report it.
func (t *Template) Render(resolve Resolver) (string, error) {
	var b strings.Builder
	var firstErr error
	for _, seg := range t.segments {
		if seg.field == nil {
			b.WriteString(seg.literal)
			continue
		}
		v, err := resolve(seg.field.Ref)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			b.WriteString("<unresolved " + seg.field.Ref.Raw + ">")
			continue
		}
		b.WriteString(formatValue(v, seg.field.Conv, seg.field.Spec))
	}
	return b.String(), firstErr
}

// formatValue applies the field's conversion, then its format spec.
func formatValue(v any, conv byte, spec string) string {
	var converted any = v
	switch conv {
	case 's':
		converted = fmt.Sprint(v)
	case 'r':
		converted = fmt.Sprintf("%#v", v)
	case 'q':
		if s, ok := v.(string); ok {
			converted = fmt.Sprintf("%q", s)
		} else {
			converted = fmt.Sprintf("%q", fmt.Sprint(v))
		}
	}
	spec = alignSpec(spec)
	if spec == "" {
		return fmt.Sprint(converted)
	}
	verb := spec[len(spec)-1]
	if ('a' <= verb && verb <= 'z') || ('A' <= verb && verb <= 'Z') {
		return fmt.Sprintf("%"+spec, converted)
	}
	return fmt.Sprintf("%"+spec+"v", converted)
}

// alignSpec translates a leading alignment character into fmt terms:
// '>' is fmt's default (right), '<' becomes the '-' flag, and '^' has no
// fmt equivalent so it falls back to right alignment.
func alignSpec(spec string) string {
	if spec == "" {
		return spec
	}
	switch spec[0] {
	case '>', '^':
		return spec[1:]
	case '<':
		return "-" + spec[1:]
	}
	return spec
}

// ApplyPath walks a reference's accessor chain over a runtime value:
// struct fields, map keys, no-argument methods and slice/array indexes.
// Pointers and interfaces are dereferenced along the way.
func ApplyPath(v any, ref Reference) (any, error) {
	for _, step := range ref.Path {
		next, err := applyAccessor(v, ref, step)
		if err != nil {
			return nil, err
		}
		v = next
	}
	return v, nil
}

func applyAccessor(v any, ref Reference, step Accessor) (any, error) {
	if v == nil {
		return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: "value is nil"}
	}
	rv := reflect.ValueOf(v)

	if !step.IsIndex {
		// Methods bind to the original value, before dereferencing, so
		// pointer receivers are honored.
		if out, ok := callAccessorMethod(rv, step.Name); ok {
			return out, nil
		}
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: "value is nil"}
		}
		rv = rv.Elem()
	}

	if step.IsIndex {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.String:
			if step.Index < 0 || step.Index >= rv.Len() {
				return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: fmt.Sprintf("index out of range (len %d)", rv.Len())}
			}
			return rv.Index(step.Index).Interface(), nil
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.Int {
				return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: "map key is not int"}
			}
			mv := rv.MapIndex(reflect.ValueOf(step.Index))
			if !mv.IsValid() {
				return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: "key not present"}
			}
			return mv.Interface(), nil
		default:
			return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: fmt.Sprintf("%s is not indexable", rv.Kind())}
		}
	}

	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(step.Name)
		if !f.IsValid() {
			f = rv.FieldByName(exported(step.Name))
		}
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
		if out, ok := callAccessorMethod(rv, step.Name); ok {
			return out, nil
		}
		return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: fmt.Sprintf("type %s has no field or method %q", rv.Type(), step.Name)}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: "map key is not string"}
		}
		mv := rv.MapIndex(reflect.ValueOf(step.Name))
		if !mv.IsValid() {
			return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: "key not present"}
		}
		return mv.Interface(), nil
	default:
		return nil, &AttributeResolutionError{Ref: ref, Step: step, Reason: fmt.Sprintf("%s has no attributes", rv.Kind())}
	}
}

// callAccessorMethod invokes a no-argument, single-result method if the
// value has one under the accessor's name (exact, then exported casing).
func callAccessorMethod(rv reflect.Value, name string) (any, bool) {
	for _, n := range []string{name, exported(name)} {
		m := rv.MethodByName(n)
		if m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			return m.Call(nil)[0].Interface(), true
		}
	}
	return nil, false
}

// exported uppercases the first byte so template authors can write struct
// attributes in either casing.
func exported(name string) string {
	if name == "" || (name[0] < 'a' || name[0] > 'z') {
		return name
	}
	return string(name[0]-'a'+'A') + name[1:]
}
