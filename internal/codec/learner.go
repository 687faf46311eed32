package codec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/midibpe/internal/utils"
	"github.com/midibpe/vocab"
)

// Stats summarizes a learning run.
type Stats struct {
	Learned       int     // merged tokens registered
	MeanLenBefore float64 // mean track length before learning
	MeanLenAfter  float64 // mean track length after learning
	PercentChange float64 // (after - before) / before * 100
}

// Learn grows the vocabulary to targetVocabSize by iteratively merging the
// most frequent adjacent token pair across the corpus. Tracks are rewritten
// in place inside the outer slice; each track value is owned by the
// iteration that rewrites it.
//
// Winner selection: strictly maximum pair count; ties resolve to the
// lexicographically smallest (a, b). A pair whose merged token already
// exists (possible when later merges re-juxtapose an old pair) is skipped
// in favor of the next candidate.
//
// Each outer iteration is atomic: the merged token is registered and the
// whole corpus rewritten, or the vocabulary and corpus are left exactly as
// they were before the iteration. Cancellation is checked once per
// iteration.
//
// Cost is O(total corpus length) per iteration, so the whole run is
// O((targetVocabSize - initial size) x corpus length). The per-iteration
// recount is deliberate: incremental count maintenance must not change
// which pair wins, and the recount keeps that trivially true.
func Learn(ctx context.Context, corpus [][]int, targetVocabSize int, v *vocab.Vocabulary, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if targetVocabSize <= v.Len() {
		return Stats{}, fmt.Errorf("target vocab size %d not larger than current size %d: %w",
			targetVocabSize, v.Len(), ErrInvalidArgument)
	}

	nTracks := 0
	totalBefore := 0
	for _, track := range corpus {
		nTracks++
		totalBefore += len(track)
	}
	if nTracks == 0 {
		return Stats{}, fmt.Errorf("empty corpus: %w", ErrInvalidArgument)
	}

	stats := Stats{MeanLenBefore: float64(totalBefore) / float64(nTracks)}
	heap := utils.NewPairHeap(1024)

	for v.Len() < targetVocabSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		counts, err := countPairs(ctx, corpus)
		if err != nil {
			return stats, err
		}

		winner, ok := selectPair(heap, counts, v)
		if !ok {
			return stats, fmt.Errorf("no adjacent pair left to merge after %d merges: %w",
				stats.Learned, ErrInvalidArgument)
		}

		decomposition := flatten(winner, v)
		tok, err := v.AddMerged(winner[:], decomposition)
		if err != nil {
			return stats, fmt.Errorf("register merge %v: %w", winner, err)
		}

		for i, track := range corpus {
			corpus[i] = mergePass(track, winner, tok)
		}
		stats.Learned++

		if stats.Learned%100 == 0 {
			logger.Debug("bpe learning progress",
				"learned", stats.Learned,
				"vocab_size", v.Len(),
				"winner_count", counts[winner])
		}
	}

	totalAfter := 0
	for _, track := range corpus {
		totalAfter += len(track)
	}
	stats.MeanLenAfter = float64(totalAfter) / float64(nTracks)
	stats.PercentChange = (stats.MeanLenAfter - stats.MeanLenBefore) / stats.MeanLenBefore * 100

	logger.Info("bpe learning done",
		"learned", stats.Learned,
		"vocab_size", v.Len(),
		"mean_len_before", stats.MeanLenBefore,
		"mean_len_after", stats.MeanLenAfter,
		"percent_change", stats.PercentChange)
	return stats, nil
}

// selectPair pops candidates in deterministic order until it finds a pair
// without an existing merged token.
func selectPair(heap *utils.PairHeap, counts map[[2]int]int, v *vocab.Vocabulary) ([2]int, bool) {
	heap.Reset()
	for pair, n := range counts {
		heap.Push(utils.PairCand{A: pair[0], B: pair[1], Count: n})
	}
	for {
		c, ok := heap.Pop()
		if !ok {
			return [2]int{}, false
		}
		if _, exists := v.MergedFor(c.A, c.B); exists {
			continue
		}
		return [2]int{c.A, c.B}, true
	}
}

// flatten computes the full primitive decomposition of a pair: merged
// members are substituted by their own already-flat decompositions,
// primitives pass through as-is.
func flatten(pair [2]int, v *vocab.Vocabulary) []int {
	out := make([]int, 0, 4)
	for _, tok := range pair {
		if dec, ok := v.Decomposition(tok); ok {
			out = append(out, dec...)
		} else {
			out = append(out, tok)
		}
	}
	return out
}

// mergePass rewrites a track in a single non-overlapping left-to-right
// pass, replacing every adjacent occurrence of pair with merged. It is not
// a fixed-point loop: occurrences created by the shift are picked up on the
// next learner iteration.
func mergePass(track []int, pair [2]int, merged int) []int {
	out := track[:0]
	i := 0
	for i < len(track) {
		if i+1 < len(track) && track[i] == pair[0] && track[i+1] == pair[1] {
			out = append(out, merged)
			i += 2
			continue
		}
		out = append(out, track[i])
		i++
	}
	return out
}
