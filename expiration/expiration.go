// Package expiration schedules TTL evictions.
//
// Pending expirations live in one min-heap ordered by deadline and are served
// by a single worker goroutine. A timer record only names (key, generation);
// whether an eviction is still valid is decided by the owner of the data when
// the timer fires.
package expiration

import "time"

// timer is one pending expiration.
type timer[K comparable] struct {
	key      K
	gen      uint64
	deadline time.Time

	// seq is the arm order. Equal deadlines fire in the order they were armed.
	seq uint64

	// index is the position in the heap, -1 once popped or removed.
	index int
}

// timerHeap implements heap.Interface ordered by deadline, then arm order.
type timerHeap[K comparable] []*timer[K]

func (h timerHeap[K]) Len() int { return len(h) }

func (h timerHeap[K]) Less(i, j int) bool {
	if !h[i].deadline.Equal(h[j].deadline) {
		return h[i].deadline.Before(h[j].deadline)
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap[K]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap[K]) Push(x any) {
	t := x.(*timer[K])
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap[K]) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil // avoid memory leak
	t.index = -1
	*h = old[:n-1]
	return t
}
