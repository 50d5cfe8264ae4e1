// Package result carries the soft-failure outcome of interactive rule
// operations.
package result

// Result is either a value or an empty selection with a human readable
// reason. An empty selection is an ordinary outcome of interactive use and
// is never reported as an error.
type Result[T any] struct {
	value  T
	reason string
	empty  bool
}

// Ok wraps a usable value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// EmptySelection reports that the caller's selection was incomplete.
func EmptySelection[T any](reason string) Result[T] {
	return Result[T]{reason: reason, empty: true}
}

// Value returns the wrapped value and true, or the zero value and false for
// an empty selection.
func (r Result[T]) Value() (T, bool) {
	if r.empty {
		var zero T
		return zero, false
	}
	return r.value, true
}

// IsEmpty reports whether r is an empty selection.
func (r Result[T]) IsEmpty() bool { return r.empty }

// Reason explains an empty selection. It is "" for Ok results.
func (r Result[T]) Reason() string { return r.reason }
