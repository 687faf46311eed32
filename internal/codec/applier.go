package codec

import (
	"slices"

	"github.com/midibpe/vocab"
)

// Apply greedily rewrites a token sequence with the learned merges. The
// input is returned unchanged when the vocabulary holds no merged tokens;
// otherwise a rewritten copy is returned and the input is left alone.
//
// Semantics replicate training-time compression exactly: merged tokens are
// visited in vocabulary-insertion order; for each one the sequence is
// scanned left to right, a matching succession is replaced in place, and
// the scan continues past the replacement. A full pass over all merged
// tokens is one round; rounds repeat until the length stops shrinking,
// because a later merge may combine tokens produced by earlier ones.
//
// Apply is idempotent: its output is a fixed point of itself.
func Apply(seq []int, v *vocab.Vocabulary) []int {
	if !v.HasBPE() {
		return seq
	}

	out := slices.Clone(seq)
	merged := v.TokensOfType(vocab.TypeBPE)

	prevLen := len(out) + 1
	for prevLen != len(out) {
		prevLen = len(out)
		for _, tok := range merged {
			succession, ok := v.Succession(tok)
			if !ok {
				continue
			}
			out = replaceSuccession(out, succession, tok)
		}
	}
	return out
}

func replaceSuccession(seq, succession []int, merged int) []int {
	n := len(succession)
	i := 0
	for i <= len(seq)-n {
		if slices.Equal(seq[i:i+n], succession) {
			seq[i] = merged
			seq = append(seq[:i+1], seq[i+n:]...)
		}
		i++
	}
	return seq
}
