package codec

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midibpe/vocab"
)

// newNoteVocab builds a vocabulary with n primitive tokens 0..n-1.
func newNoteVocab(t *testing.T, n int) *vocab.Vocabulary {
	t.Helper()
	v := vocab.New()
	for i := 0; i < n; i++ {
		tok, err := v.AddEvent(vocab.Event{Type: "Pitch", Value: fmt.Sprint(60 + i)})
		require.NoError(t, err)
		require.Equal(t, i, tok)
	}
	return v
}

func TestLearnSingleMerge(t *testing.T) {
	v := newNoteVocab(t, 4)
	corpus := [][]int{{0, 1, 0, 1, 2}}

	stats, err := Learn(context.Background(), corpus, 5, v, nil)
	require.NoError(t, err)

	// Pair counts are (0,1):2, (1,0):1, (1,2):1, so (0,1) wins and becomes
	// token 4. The single left-to-right pass replaces both non-overlapping
	// occurrences.
	require.Equal(t, 5, v.Len())
	if diff := cmp.Diff([][]int{{4, 4, 2}}, corpus); diff != "" {
		t.Fatalf("rewritten corpus mismatch (-want +got):\n%s", diff)
	}

	succession, ok := v.Succession(4)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, succession)

	decomposition, ok := v.Decomposition(4)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, decomposition)

	desc, err := v.DescriptorFor(4)
	require.NoError(t, err)
	assert.Equal(t, "BPE_0-1.0-1", desc)

	assert.Equal(t, 1, stats.Learned)
	assert.InDelta(t, 5.0, stats.MeanLenBefore, 1e-9)
	assert.InDelta(t, 3.0, stats.MeanLenAfter, 1e-9)
	assert.InDelta(t, -40.0, stats.PercentChange, 1e-9)
}

func TestLearnReachesExactTarget(t *testing.T) {
	for _, k := range []int{1, 2, 5, 9} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			v := newNoteVocab(t, 4)
			corpus := [][]int{
				{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3},
				{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3},
			}
			initial := v.Len()

			stats, err := Learn(context.Background(), corpus, initial+k, v, nil)
			require.NoError(t, err)
			assert.Equal(t, initial+k, v.Len())
			assert.Equal(t, k, stats.Learned)
		})
	}
}

func TestLearnGrowsByOnePerIteration(t *testing.T) {
	v := newNoteVocab(t, 4)
	corpus := [][]int{
		{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3},
	}

	// Learn one merge at a time; each iteration must add exactly one token
	// and keep every registered decomposition flat.
	for step := 0; step < 3; step++ {
		before := v.Len()
		_, err := Learn(context.Background(), corpus, before+1, v, nil)
		require.NoError(t, err)
		require.Equal(t, before+1, v.Len())

		for _, tok := range v.TokensOfType(vocab.TypeBPE) {
			decomposition, ok := v.Decomposition(tok)
			require.True(t, ok)
			for _, d := range decomposition {
				assert.False(t, v.IsMerged(d),
					"token %d has merged token %d in its decomposition", tok, d)
			}
		}
	}
}

func TestLearnMergesMergedTokens(t *testing.T) {
	v := newNoteVocab(t, 4)
	corpus := [][]int{
		{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3},
	}

	_, err := Learn(context.Background(), corpus, 7, v, nil)
	require.NoError(t, err)

	// Iteration 1: (0,1) -> 4. Iteration 2: ties at count 4 between (4,2)
	// and (2,3); (2,3) is lexicographically smaller -> 5. Iteration 3:
	// (4,5) -> 6, a merge of two merged tokens.
	succession, ok := v.Succession(6)
	require.True(t, ok)
	assert.Equal(t, []int{4, 5}, succession)

	decomposition, ok := v.Decomposition(6)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3}, decomposition)

	if diff := cmp.Diff([][]int{{6, 6, 6, 6}}, corpus); diff != "" {
		t.Fatalf("rewritten corpus mismatch (-want +got):\n%s", diff)
	}
}

func TestLearnTieBreakIsLexicographic(t *testing.T) {
	// All three pairs occur exactly once; the winner must always be (0,1).
	for trial := 0; trial < 10; trial++ {
		v := newNoteVocab(t, 4)
		corpus := [][]int{{3, 2, 1, 0}, {0, 1}, {1, 2}, {2, 3}}

		_, err := Learn(context.Background(), corpus, 5, v, nil)
		require.NoError(t, err)

		succession, ok := v.Succession(4)
		require.True(t, ok)
		require.Equal(t, []int{0, 1}, succession)
	}
}

func TestLearnTargetNotLargerThanVocab(t *testing.T) {
	v := newNoteVocab(t, 4)
	corpus := [][]int{{0, 1, 2}}

	_, err := Learn(context.Background(), corpus, 4, v, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 4, v.Len())

	_, err = Learn(context.Background(), corpus, 3, v, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLearnEmptyCorpus(t *testing.T) {
	v := newNoteVocab(t, 4)

	_, err := Learn(context.Background(), [][]int{}, 5, v, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 4, v.Len())
}

func TestLearnCorpusWithoutPairs(t *testing.T) {
	v := newNoteVocab(t, 4)
	corpus := [][]int{{0}, {1}, {}}

	_, err := Learn(context.Background(), corpus, 5, v, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 4, v.Len())
}

func TestLearnPairsNeverSpanTracks(t *testing.T) {
	v := newNoteVocab(t, 4)
	// (1,0) would have count 2 if track boundaries leaked; within tracks
	// only (0,1) repeats.
	corpus := [][]int{{0, 1}, {0, 1}, {0, 1}}

	_, err := Learn(context.Background(), corpus, 5, v, nil)
	require.NoError(t, err)

	succession, ok := v.Succession(4)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, succession)
	if diff := cmp.Diff([][]int{{4}, {4}, {4}}, corpus); diff != "" {
		t.Fatalf("rewritten corpus mismatch (-want +got):\n%s", diff)
	}
}

func TestLearnCancelledContext(t *testing.T) {
	v := newNoteVocab(t, 4)
	corpus := [][]int{{0, 1, 0, 1, 2}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Learn(ctx, corpus, 5, v, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, [][]int{{0, 1, 0, 1, 2}}, corpus)
}

func TestCountPairsParallelMatchesSequential(t *testing.T) {
	// Enough tokens to cross the parallel threshold.
	tracks := make([][]int, 64)
	for i := range tracks {
		track := make([]int, 2048)
		for j := range track {
			track[j] = (i*7 + j*j) % 16
		}
		tracks[i] = track
	}

	seq, err := countPairsSeq(context.Background(), tracks)
	require.NoError(t, err)
	par, err := countPairs(context.Background(), tracks)
	require.NoError(t, err)

	if diff := cmp.Diff(seq, par); diff != "" {
		t.Fatalf("parallel counts diverge from sequential (-want +got):\n%s", diff)
	}
}
