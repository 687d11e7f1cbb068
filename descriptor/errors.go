package descriptor

import "github.com/cockroachdb/errors"

// ErrCapacityExceeded is returned when a binding layout or a staging call asks for more
// descriptor slots than a heap can hold, or names a root index outside of the supported range
var ErrCapacityExceeded error = errors.New("descriptor capacity exceeded")

// ErrTableOverflow is returned when staged descriptors run past the end of their table
var ErrTableOverflow error = errors.New("descriptors exceed the size of the descriptor table")
