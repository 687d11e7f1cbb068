package fence

import "sync/atomic"

// Timeline is a CompletionFence maintained entirely on the CPU. Submitters call Next to stamp a
// batch of work and Signal once that work is known to have finished. It is useful for backends
// that complete work synchronously and for tests.
type Timeline struct {
	submitted atomic.Uint64
	completed atomic.Uint64
}

var _ CompletionFence = &Timeline{}

// Next reserves and returns the Value for the next batch of submitted work
func (t *Timeline) Next() Value {
	return Value(t.submitted.Add(1))
}

// Current returns the most recent Value returned by Next
func (t *Timeline) Current() Value {
	return Value(t.submitted.Load())
}

// Completed returns the highest Value passed to Signal
func (t *Timeline) Completed() Value {
	return Value(t.completed.Load())
}

// Signal marks all work up to and including value as finished. Signaling a value lower than one
// that has already been signaled has no effect.
func (t *Timeline) Signal(value Value) {
	for {
		current := t.completed.Load()
		if uint64(value) <= current {
			return
		}

		if t.completed.CompareAndSwap(current, uint64(value)) {
			return
		}
	}
}

// IsComplete reports whether value has been signaled
func (t *Timeline) IsComplete(value Value) bool {
	return uint64(value) <= t.completed.Load()
}
