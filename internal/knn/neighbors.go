package knn

import (
	"container/heap"
	"slices"
)

type candidate struct {
	distance float64
	index    int
}

// candidateHeap is a max-heap on (distance, index): the root is the worst
// neighbour kept so far.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance > h[j].distance
	}
	return h[i].index > h[j].index
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// boundedNeighbors keeps the k smallest distances offered to it. A candidate
// replaces the current worst only when strictly closer, so among equal
// distances the first one offered stays.
type boundedNeighbors struct {
	k    int
	heap candidateHeap
}

func newBoundedNeighbors(k int) *boundedNeighbors {
	return &boundedNeighbors{k: k, heap: make(candidateHeap, 0, k)}
}

func (n *boundedNeighbors) offer(distance float64, index int) {
	if n.heap.Len() < n.k {
		heap.Push(&n.heap, candidate{distance: distance, index: index})
		return
	}
	if distance < n.heap[0].distance {
		n.heap[0] = candidate{distance: distance, index: index}
		heap.Fix(&n.heap, 0)
	}
}

// drain empties the structure and returns the kept candidates nearest first
func (n *boundedNeighbors) drain() []candidate {
	out := make([]candidate, 0, n.heap.Len())
	for n.heap.Len() > 0 {
		out = append(out, heap.Pop(&n.heap).(candidate))
	}
	slices.Reverse(out)
	return out
}
