package memutils

import "math/bits"

// LowestSetBit returns the index of the lowest set bit in mask. The second return value is
// false when mask is zero.
func LowestSetBit(mask uint32) (int, bool) {
	if mask == 0 {
		return 0, false
	}

	return bits.TrailingZeros32(mask), true
}

// ForEachSetBit calls visit once for each set bit of mask, in ascending bit order
func ForEachSetBit(mask uint32, visit func(index int)) {
	for mask != 0 {
		index, _ := LowestSetBit(mask)
		visit(index)
		mask &= mask - 1
	}
}

// PopCount is the number of set bits in mask
func PopCount(mask uint32) int {
	return bits.OnesCount32(mask)
}
