package memutils

import (
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

type Number interface {
	~int | ~uint | ~uint32 | ~uint64
}

// CheckPow2 returns PowerOfTwoError, wrapped with the provided name, if number is zero or is not a
// power of two
func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return errors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two
func AlignUp[T constraints.Integer](value T, alignment T) T {
	return (value + alignment - 1) & ^(alignment - 1)
}

// CheckedAlignUp behaves like AlignUp for non-negative ints but reports OverflowError instead of
// wrapping around
func CheckedAlignUp(value int, alignment int) (int, error) {
	if value > math.MaxInt-(alignment-1) {
		return 0, errors.Wrapf(OverflowError, "aligning %d to %d", value, alignment)
	}

	return AlignUp(value, alignment), nil
}
