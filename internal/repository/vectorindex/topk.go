package vectorindex

import (
	"container/heap"
	"math"
	"slices"
)

// candidate is a stored position and its distance to the query.
type candidate struct {
	pos  int
	dist float64
}

// worse orders candidates by distance, then by insertion position, so equal
// distances always rank the earlier vector first. NaN counts as +Inf.
func worse(a, b candidate) bool {
	da, db := a.dist, b.dist
	if math.IsNaN(da) {
		da = math.Inf(1)
	}
	if math.IsNaN(db) {
		db = math.Inf(1)
	}
	if da != db {
		return da > db
	}
	return a.pos > b.pos
}

// maxHeap keeps the worst retained candidate at the root.
type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// topK retains the k best candidates seen so far in O(N log k).
type topK struct {
	k int
	h maxHeap
}

func newTopK(k int) *topK {
	return &topK{k: k, h: make(maxHeap, 0, k)}
}

func (t *topK) offer(pos int, dist float64) {
	c := candidate{pos: pos, dist: dist}
	if len(t.h) < t.k {
		heap.Push(&t.h, c)
		return
	}
	if worse(t.h[0], c) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// sorted returns the retained candidates best first.
func (t *topK) sorted() []candidate {
	out := slices.Clone([]candidate(t.h))
	slices.SortFunc(out, func(a, b candidate) int {
		switch {
		case worse(b, a):
			return -1
		case worse(a, b):
			return 1
		default:
			return 0
		}
	})
	return out
}
