package utils

// PairCand is a candidate token pair for the next merge, with its corpus
// frequency.
type PairCand struct {
	A, B  int
	Count int // higher wins
}

// PairHeap is a max-heap over pair candidates. Ordering is count first,
// then lexicographically smallest (A, B), so the popped winner is
// deterministic regardless of the order candidates were pushed in.
type PairHeap struct {
	items []PairCand
}

func NewPairHeap(capacity int) *PairHeap {
	if capacity < 64 {
		capacity = 64
	}
	return &PairHeap{items: make([]PairCand, 0, capacity)}
}

func (h *PairHeap) Len() int {
	return len(h.items)
}

func (h *PairHeap) less(a, b PairCand) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}

func (h *PairHeap) Push(c PairCand) {
	h.items = append(h.items, c)
	h.up(len(h.items) - 1)
}

func (h *PairHeap) Pop() (PairCand, bool) {
	if len(h.items) == 0 {
		return PairCand{}, false
	}

	n := len(h.items) - 1
	h.items[0], h.items[n] = h.items[n], h.items[0]

	result := h.items[n]
	h.items = h.items[:n]

	if len(h.items) > 0 {
		h.down(0)
	}

	return result, true
}

func (h *PairHeap) Reset() {
	h.items = h.items[:0]
}

func (h *PairHeap) up(i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *PairHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		right := 2*i + 2
		best := i

		if left < n && h.less(h.items[left], h.items[best]) {
			best = left
		}
		if right < n && h.less(h.items[right], h.items[best]) {
			best = right
		}
		if best == i {
			break
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
