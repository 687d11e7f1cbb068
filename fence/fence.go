// Package fence describes the completion markers the command-submission backend hands to the
// transient allocators. The allocators never create or wait on fences themselves: they store
// Value stamps and ask a Predicate whether work up to a stamp has finished.
package fence

// Value is a monotonically increasing marker for submitted GPU work. The zero Value is always
// considered complete.
type Value uint64

// Predicate reports whether all GPU work up to and including value has finished executing
type Predicate func(value Value) bool

// CompletionFence is the capability supplied by the command-submission backend
type CompletionFence interface {
	// Current returns the most recent Value that has been handed out for submitted work
	Current() Value
	// IsComplete reports whether the GPU has finished all work up to value
	IsComplete(value Value) bool
}

// Check returns a Predicate that consults the provided fence. The returned predicate treats
// the zero Value as complete regardless of what the fence reports.
func Check(f CompletionFence) Predicate {
	return func(value Value) bool {
		return value == 0 || f.IsComplete(value)
	}
}

// Complete wraps an arbitrary predicate so that the zero Value always satisfies it
func (p Predicate) Complete(value Value) bool {
	if value == 0 {
		return true
	}
	if p == nil {
		return false
	}
	return p(value)
}
