package utils

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairHeapOrdersByCountThenPair(t *testing.T) {
	h := NewPairHeap(0)
	h.Push(PairCand{A: 5, B: 6, Count: 2})
	h.Push(PairCand{A: 0, B: 1, Count: 7})
	h.Push(PairCand{A: 3, B: 3, Count: 7})
	h.Push(PairCand{A: 0, B: 0, Count: 1})

	want := []PairCand{
		{A: 0, B: 1, Count: 7},
		{A: 3, B: 3, Count: 7},
		{A: 5, B: 6, Count: 2},
		{A: 0, B: 0, Count: 1},
	}
	for _, w := range want {
		got, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, w, got)
	}
	_, ok := h.Pop()
	require.False(t, ok)
}

func TestPairHeapTieBreakIsLexicographic(t *testing.T) {
	cands := []PairCand{
		{A: 2, B: 9, Count: 4},
		{A: 2, B: 3, Count: 4},
		{A: 1, B: 8, Count: 4},
		{A: 1, B: 7, Count: 4},
	}

	// The winner must not depend on push order.
	for trial := 0; trial < 10; trial++ {
		h := NewPairHeap(0)
		perm := rand.Perm(len(cands))
		for _, i := range perm {
			h.Push(cands[i])
		}
		got, ok := h.Pop()
		require.True(t, ok)
		require.Equal(t, PairCand{A: 1, B: 7, Count: 4}, got)
	}
}

func TestPairHeapReset(t *testing.T) {
	h := NewPairHeap(0)
	h.Push(PairCand{A: 1, B: 2, Count: 1})
	h.Reset()
	require.Zero(t, h.Len())
	_, ok := h.Pop()
	require.False(t, ok)
}
