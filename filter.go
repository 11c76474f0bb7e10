package dogging

import "errors"

// Failure is the engine's view of a wrapped call going wrong: either a
// non-nil error returned in the function's final error position, or a
// recovered panic value. Exactly one of the two fields is set.
type Failure struct {
	Err   error
	Panic any
}

// Value returns the error or the panic value, whichever occurred.
func (f Failure) Value() any {
	if f.Err != nil {
		return f.Err
	}
	return f.Panic
}

// Filter decides whether the error phase observes a failure. Filters are
// capability predicates over the failure, not a type hierarchy, so error
// values, wrapped errors and panics are all filterable the same way.
type Filter func(Failure) bool

// CatchAll matches every failure. It is the default when no Catch option
// is given.
func CatchAll() Filter {
	return func(Failure) bool { return true }
}

// CatchIs matches failures whose error chain contains target, per
// errors.Is.
func CatchIs(target error) Filter {
	return func(f Failure) bool {
		return f.Err != nil && errors.Is(f.Err, target)
	}
}

// CatchAs matches failures whose error chain contains a T, per errors.As.
func CatchAs[T error]() Filter {
	return func(f Failure) bool {
		if f.Err == nil {
			return false
		}
		var t T
		return errors.As(f.Err, &t)
	}
}

// CatchPanics matches failures raised as panics.
func CatchPanics() Filter {
	return func(f Failure) bool { return f.Panic != nil }
}

// matchesFilter reports whether any filter matches; an empty filter set is
// the catch-all.
func matchesFilter(filters []Filter, f Failure) bool {
	if len(filters) == 0 {
		return true
	}
	for _, filter := range filters {
		if filter(f) {
			return true
		}
	}
	return false
}
