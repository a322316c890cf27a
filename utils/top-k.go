package utils

import "slices"

// ValIdx represents a value and its original index
type ValIdx struct {
	Val   float64
	Index int
}

// weaker orders entries for the min-heap: lower value first, and among
// equal values the higher index is weaker so earlier entries win ties
func (a ValIdx) weaker(b ValIdx) bool {
	if a.Val != b.Val {
		return a.Val < b.Val
	}
	return a.Index > b.Index
}

// TopKFinder finds the K largest elements with a reusable min-heap
type TopKFinder struct {
	minHeap []ValIdx
}

// NewTopKFinder creates a finder with room for maxK elements
func NewTopKFinder(maxK int) *TopKFinder {
	return &TopKFinder{
		minHeap: make([]ValIdx, 0, max(maxK, 0)),
	}
}

// FindTopK returns the indices of the k largest values, largest first.
// Ties are broken by lower index.
func (f *TopKFinder) FindTopK(nums []float64, k int) []int {
	k = min(k, len(nums))
	if k <= 0 {
		return []int{}
	}

	f.minHeap = f.minHeap[:0]
	for i := 0; i < k; i++ {
		f.minHeap = append(f.minHeap, ValIdx{nums[i], i})
	}
	for i := k/2 - 1; i >= 0; i-- {
		f.siftDown(i)
	}

	for i := k; i < len(nums); i++ {
		candidate := ValIdx{nums[i], i}
		if f.minHeap[0].weaker(candidate) {
			f.minHeap[0] = candidate
			f.siftDown(0)
		}
	}

	sorted := slices.Clone(f.minHeap)
	slices.SortFunc(sorted, func(a, b ValIdx) int {
		switch {
		case b.weaker(a):
			return -1
		case a.weaker(b):
			return 1
		}
		return 0
	})

	indices := make([]int, k)
	for i, v := range sorted {
		indices[i] = v.Index
	}
	return indices
}

// siftDown restores the heap property below root
func (f *TopKFinder) siftDown(root int) {
	end := len(f.minHeap) - 1
	for {
		child := root*2 + 1
		if child > end {
			return
		}
		if child+1 <= end && f.minHeap[child+1].weaker(f.minHeap[child]) {
			child++
		}
		if !f.minHeap[child].weaker(f.minHeap[root]) {
			return
		}
		f.minHeap[root], f.minHeap[child] = f.minHeap[child], f.minHeap[root]
		root = child
	}
}
