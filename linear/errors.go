package linear

import "github.com/cockroachdb/errors"

// ErrInvalidAllocation is returned from LinearAllocator.Allocate when the requested size or
// alignment can never be satisfied
var ErrInvalidAllocation = errors.New("invalid allocation request")
