package memutils

import "math"

// Statistics summarizes the pages owned by a page manager and the allocations live inside them
type Statistics struct {
	PageCount       int
	AllocationCount int
	PageBytes       int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.PageCount = 0
	s.AllocationCount = 0
	s.PageBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.PageCount += other.PageCount
	s.AllocationCount += other.AllocationCount
	s.PageBytes += other.PageBytes
	s.AllocationBytes += other.AllocationBytes
}

// DetailedStatistics breaks Statistics down by where each page currently lives
type DetailedStatistics struct {
	Statistics
	AvailablePageCount int
	RetiredPageCount   int
	LargePageCount     int
	LargePageBytes     int
	AllocationSizeMin  int
	AllocationSizeMax  int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.AvailablePageCount = 0
	s.RetiredPageCount = 0
	s.LargePageCount = 0
	s.LargePageBytes = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
}

func (s *DetailedStatistics) AddLargePage(size int) {
	s.LargePageCount++
	s.LargePageBytes += size
}

// AddAllocations records count allocations totaling bytes, the smallest being minSize bytes
// and the largest maxSize bytes
func (s *DetailedStatistics) AddAllocations(count, bytes, minSize, maxSize int) {
	if count == 0 {
		return
	}

	s.AllocationCount += count
	s.AllocationBytes += bytes

	if minSize < s.AllocationSizeMin {
		s.AllocationSizeMin = minSize
	}

	if maxSize > s.AllocationSizeMax {
		s.AllocationSizeMax = maxSize
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.AvailablePageCount += other.AvailablePageCount
	s.RetiredPageCount += other.RetiredPageCount
	s.LargePageCount += other.LargePageCount
	s.LargePageBytes += other.LargePageBytes

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}
