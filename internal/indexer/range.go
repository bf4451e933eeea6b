package indexer

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange partitions [from, to] into windows [cur, min(cur+size, to)],
// stepping by size+1 so windows are contiguous and never overlap. The last
// block of the range is always covered.
func SplitRange(from, to, size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("window size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	cur := from
	for {
		end := to
		if to-cur > size {
			end = cur + size
		}
		ranges = append(ranges, BlockRange{From: cur, To: end})
		if end == to {
			break
		}
		cur = end + 1
	}

	return ranges, nil
}
