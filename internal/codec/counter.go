package codec

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallel counting only pays off once the corpus is big enough to amortize
// goroutine setup and the final map merge.
const parallelCountThreshold = 1 << 16

// countPairs counts occurrences of every adjacent token pair across every
// track. Pairs never span a track boundary.
//
// Counting is a pure reduction over disjoint tracks, so it may fan out
// across goroutines; per-shard counts are merged into a single map before
// the caller selects a winner, and addition is order-independent, so the
// result is identical to a sequential scan.
func countPairs(ctx context.Context, tracks [][]int) (map[[2]int]int, error) {
	total := 0
	for _, track := range tracks {
		total += len(track)
	}
	if total < parallelCountThreshold || len(tracks) < 2 {
		return countPairsSeq(ctx, tracks)
	}

	shards := runtime.GOMAXPROCS(0)
	if shards > len(tracks) {
		shards = len(tracks)
	}

	results := make([]map[[2]int]int, shards)
	g, ctx := errgroup.WithContext(ctx)
	for s := 0; s < shards; s++ {
		s := s
		g.Go(func() error {
			counts := make(map[[2]int]int)
			for i := s; i < len(tracks); i += shards {
				if err := ctx.Err(); err != nil {
					return err
				}
				countTrack(counts, tracks[i])
			}
			results[s] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := results[0]
	for _, counts := range results[1:] {
		for pair, n := range counts {
			merged[pair] += n
		}
	}
	return merged, nil
}

func countPairsSeq(ctx context.Context, tracks [][]int) (map[[2]int]int, error) {
	counts := make(map[[2]int]int)
	for _, track := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		countTrack(counts, track)
	}
	return counts, nil
}

func countTrack(counts map[[2]int]int, track []int) {
	for i := 0; i+1 < len(track); i++ {
		counts[[2]int{track[i], track[i+1]}]++
	}
}
