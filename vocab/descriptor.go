package vocab

import (
	"fmt"
	"strconv"
	"strings"
)

// Merged token descriptors have the form
//
//	BPE_<a>-<b>.<d0>-<d1>-...-<dn>
//
// where <a>-<b> is the immediate two-token succession that produced the
// merge and <d0>...<dn> is its full, already-flattened primitive
// decomposition. Both lists are '-'-joined base-10 token ids.

// mergedValue packs a succession and decomposition into the Value field of
// a BPE event.
func mergedValue(succession, decomposition []int) string {
	var sb strings.Builder
	writeTokenList(&sb, succession)
	sb.WriteByte('.')
	writeTokenList(&sb, decomposition)
	return sb.String()
}

func writeTokenList(sb *strings.Builder, tokens []int) {
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strconv.Itoa(tok))
	}
}

// parseMergedValue is the inverse of mergedValue. It is used when a
// vocabulary is rebuilt from its serialized bijection, where the merge
// structure only survives inside the descriptor string.
func parseMergedValue(value string) (succession, decomposition []int, err error) {
	head, tail, ok := strings.Cut(value, ".")
	if !ok {
		return nil, nil, fmt.Errorf("merged value %q missing '.' separator: %w", value, ErrCorruptState)
	}

	succession, err = parseTokenList(head)
	if err != nil {
		return nil, nil, fmt.Errorf("merged value %q: bad succession: %w", value, err)
	}
	decomposition, err = parseTokenList(tail)
	if err != nil {
		return nil, nil, fmt.Errorf("merged value %q: bad decomposition: %w", value, err)
	}

	if len(succession) < 2 {
		return nil, nil, fmt.Errorf("merged value %q: succession has %d tokens, want at least 2: %w",
			value, len(succession), ErrCorruptState)
	}
	if len(decomposition) < len(succession) {
		return nil, nil, fmt.Errorf("merged value %q: decomposition shorter than succession: %w",
			value, ErrCorruptState)
	}
	return succession, decomposition, nil
}

func parseTokenList(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty token list: %w", ErrCorruptState)
	}
	parts := strings.Split(s, "-")
	out := make([]int, len(parts))
	for i, p := range parts {
		tok, err := strconv.Atoi(p)
		if err != nil || tok < 0 {
			return nil, fmt.Errorf("token list entry %q is not a non-negative integer: %w", p, ErrCorruptState)
		}
		out[i] = tok
	}
	return out, nil
}
