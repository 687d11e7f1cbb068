package memutils

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestCheckPow2(t *testing.T) {
	require.NoError(t, CheckPow2(uint(1), "one"))
	require.NoError(t, CheckPow2(256, "alignment"))
	require.NoError(t, CheckPow2(uint64(1)<<40, "large"))

	err := CheckPow2(0, "zero")
	require.True(t, errors.Is(err, PowerOfTwoError))
	require.ErrorContains(t, err, "zero")

	require.True(t, errors.Is(CheckPow2(uint32(24), "alignment"), PowerOfTwoError))
}

func TestAlign(t *testing.T) {
	require.Equal(t, 0, AlignUp(0, 16))
	require.Equal(t, 16, AlignUp(1, 16))
	require.Equal(t, 32, AlignUp(32, 16))
	require.Equal(t, uint64(0x20000), AlignUp(uint64(0x10001), 0x10000))
}

func TestCheckedAlignUp(t *testing.T) {
	aligned, err := CheckedAlignUp(33, 32)
	require.NoError(t, err)
	require.Equal(t, 64, aligned)

	_, err = CheckedAlignUp(math.MaxInt-2, 16)
	require.True(t, errors.Is(err, OverflowError))
}

func TestBits(t *testing.T) {
	_, ok := LowestSetBit(0)
	require.False(t, ok)

	index, ok := LowestSetBit(0b1010_0000)
	require.True(t, ok)
	require.Equal(t, 5, index)

	index, ok = LowestSetBit(1 << 31)
	require.True(t, ok)
	require.Equal(t, 31, index)

	var visited []int
	ForEachSetBit(0x8000_0013, func(index int) {
		visited = append(visited, index)
	})
	require.Equal(t, []int{0, 1, 4, 31}, visited)
	require.Equal(t, 4, PopCount(0x8000_0013))
}

func TestDetailedStatistics(t *testing.T) {
	var stats DetailedStatistics
	stats.Clear()
	stats.AddAllocations(1, 10, 10, 10)
	stats.AddAllocations(0, 0, 0, 0)
	stats.AddAllocations(1, 40, 40, 40)
	stats.AddLargePage(4096)

	var total DetailedStatistics
	total.Clear()
	total.AddDetailedStatistics(&stats)

	require.Equal(t, 2, total.AllocationCount)
	require.Equal(t, 50, total.AllocationBytes)
	require.Equal(t, 10, total.AllocationSizeMin)
	require.Equal(t, 40, total.AllocationSizeMax)
	require.Equal(t, 1, total.LargePageCount)
	require.Equal(t, 4096, total.LargePageBytes)
}
