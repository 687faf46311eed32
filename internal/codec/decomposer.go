package codec

import (
	"slices"

	"github.com/midibpe/vocab"
)

// Decompose expands every merged token in the sequence back into its full
// primitive decomposition. The input is returned unchanged when the
// vocabulary holds no merged tokens; otherwise an expanded copy is
// returned.
//
// The scan resumes at the first inserted token after an expansion.
// Registered decompositions are guaranteed flat, so that token is never
// itself merged, but if it ever were it would simply be expanded in turn
// rather than leak through.
func Decompose(seq []int, v *vocab.Vocabulary) []int {
	if !v.HasBPE() {
		return seq
	}

	out := slices.Clone(seq)
	i := 0
	for i < len(out) {
		dec, ok := v.Decomposition(out[i])
		if !ok {
			i++
			continue
		}
		expanded := make([]int, 0, len(out)+len(dec)-1)
		expanded = append(expanded, out[:i]...)
		expanded = append(expanded, dec...)
		expanded = append(expanded, out[i+1:]...)
		out = expanded
	}
	return out
}
