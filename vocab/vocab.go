package vocab

import (
	"fmt"
	"sort"
	"strings"
)

// Merged records the structure of a merged token.
// Invariants we maintain:
//   - Succession is the exact token pair whose merge created the token.
//   - Decomposition is fully flattened: it contains primitive tokens only,
//     never another merged token. Flattening happens at registration time.
type Merged struct {
	Succession    []int
	Decomposition []int
}

type entry struct {
	event  Event
	merged *Merged // nil for primitive tokens
}

// Vocabulary owns the token namespace: a total bijection between integer
// tokens and event descriptors, plus merge structure for BPE tokens.
// Invariants we maintain:
//   - tokenToEntry and descToToken are inverses of each other at all times.
//   - Token ids are unique and never removed or renumbered; the vocabulary
//     only grows.
//   - successionToToken[p] = m iff token m was registered with immediate
//     succession p.
//   - byType is a cache over the bijection; it is updated on insert and can
//     be recomputed with RebuildIndexes after bulk loads.
type Vocabulary struct {
	tokenToEntry      map[int]entry
	descToToken       map[string]int
	successionToToken map[[2]int]int
	byType            map[string][]int
	nextID            int
}

// New returns an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{
		tokenToEntry:      make(map[int]entry),
		descToToken:       make(map[string]int),
		successionToToken: make(map[[2]int]int),
		byType:            make(map[string][]int),
	}
}

// Len reports the current cardinality of the bijection.
func (v *Vocabulary) Len() int {
	return len(v.tokenToEntry)
}

// AddEvent assigns the next unused token id to the event and inserts both
// directions of the bijection. Inserting an event whose descriptor already
// exists fails with ErrDuplicate. Events of type "BPE" must carry a
// well-formed packed value (see descriptor.go); a value that does not parse
// fails with ErrCorruptState.
func (v *Vocabulary) AddEvent(ev Event) (int, error) {
	desc := ev.Descriptor()
	if prev, exists := v.descToToken[desc]; exists {
		return 0, fmt.Errorf("descriptor %q already registered as token %d: %w", desc, prev, ErrDuplicate)
	}

	e := entry{event: ev}
	if ev.Type == TypeBPE {
		succession, decomposition, err := parseMergedValue(ev.Value)
		if err != nil {
			return 0, err
		}
		e.merged = &Merged{Succession: succession, Decomposition: decomposition}
	}

	tok := v.nextID
	v.insert(tok, e)
	return tok, nil
}

// AddMerged registers a new merged token for the given immediate succession
// and flattened decomposition. The succession members must already exist in
// the vocabulary and the decomposition must contain primitive tokens only.
func (v *Vocabulary) AddMerged(succession, decomposition []int) (int, error) {
	if len(succession) != 2 {
		return 0, fmt.Errorf("succession has %d tokens, want 2: %w", len(succession), ErrCorruptState)
	}
	for _, tok := range succession {
		if _, ok := v.tokenToEntry[tok]; !ok {
			return 0, fmt.Errorf("succession token %d: %w", tok, ErrNotFound)
		}
	}
	for _, tok := range decomposition {
		e, ok := v.tokenToEntry[tok]
		if !ok {
			return 0, fmt.Errorf("decomposition token %d: %w", tok, ErrNotFound)
		}
		if e.merged != nil {
			return 0, fmt.Errorf("decomposition token %d is itself merged, decompositions must be flat: %w",
				tok, ErrCorruptState)
		}
	}

	return v.AddEvent(Event{
		Type:  TypeBPE,
		Value: mergedValue(succession, decomposition),
	})
}

func (v *Vocabulary) insert(tok int, e entry) {
	v.tokenToEntry[tok] = e
	v.descToToken[e.event.Descriptor()] = tok
	v.byType[e.event.Type] = append(v.byType[e.event.Type], tok)
	if e.merged != nil {
		v.successionToToken[[2]int{e.merged.Succession[0], e.merged.Succession[1]}] = tok
	}
	if tok >= v.nextID {
		v.nextID = tok + 1
	}
}

// DescriptorFor returns the descriptor string for a token.
func (v *Vocabulary) DescriptorFor(tok int) (string, error) {
	e, ok := v.tokenToEntry[tok]
	if !ok {
		return "", fmt.Errorf("token %d: %w", tok, ErrNotFound)
	}
	return e.event.Descriptor(), nil
}

// TokenFor returns the token for a descriptor string.
func (v *Vocabulary) TokenFor(desc string) (int, error) {
	tok, ok := v.descToToken[desc]
	if !ok {
		return 0, fmt.Errorf("descriptor %q: %w", desc, ErrNotFound)
	}
	return tok, nil
}

// EventOf returns the event a token maps to.
func (v *Vocabulary) EventOf(tok int) (Event, error) {
	e, ok := v.tokenToEntry[tok]
	if !ok {
		return Event{}, fmt.Errorf("token %d: %w", tok, ErrNotFound)
	}
	return e.event, nil
}

// IsMerged reports whether tok is a merged (BPE) token. Unknown tokens are
// not merged.
func (v *Vocabulary) IsMerged(tok int) bool {
	e, ok := v.tokenToEntry[tok]
	return ok && e.merged != nil
}

// Succession returns the immediate succession of a merged token.
func (v *Vocabulary) Succession(tok int) ([]int, bool) {
	e, ok := v.tokenToEntry[tok]
	if !ok || e.merged == nil {
		return nil, false
	}
	return e.merged.Succession, true
}

// Decomposition returns the full flattened primitive decomposition of a
// merged token.
func (v *Vocabulary) Decomposition(tok int) ([]int, bool) {
	e, ok := v.tokenToEntry[tok]
	if !ok || e.merged == nil {
		return nil, false
	}
	return e.merged.Decomposition, true
}

// MergedFor returns the token previously registered for the succession
// (a, b), if any.
func (v *Vocabulary) MergedFor(a, b int) (int, bool) {
	tok, ok := v.successionToToken[[2]int{a, b}]
	return tok, ok
}

// TokensOfType returns the cached token index for a category, in ascending
// id order. Ids are assigned monotonically, so this is also insertion
// order, which the merge applier relies on.
func (v *Vocabulary) TokensOfType(category string) []int {
	return v.byType[category]
}

// HasBPE reports whether at least one merged token exists.
func (v *Vocabulary) HasBPE() bool {
	return len(v.byType[TypeBPE]) > 0
}

// RebuildIndexes recomputes the category and succession indexes from the
// bijection. Required after bulk-loading serialized state, since only the
// bijection is persisted.
func (v *Vocabulary) RebuildIndexes() {
	v.byType = make(map[string][]int, len(v.byType))
	v.successionToToken = make(map[[2]int]int, len(v.successionToToken))
	for tok, e := range v.tokenToEntry {
		v.byType[e.event.Type] = append(v.byType[e.event.Type], tok)
		if e.merged != nil {
			v.successionToToken[[2]int{e.merged.Succession[0], e.merged.Succession[1]}] = tok
		}
	}
	for _, toks := range v.byType {
		sort.Ints(toks)
	}
}

// Descriptors returns a copy of the token -> descriptor mapping, the
// persisted half of the vocabulary.
func (v *Vocabulary) Descriptors() map[int]string {
	out := make(map[int]string, len(v.tokenToEntry))
	for tok, e := range v.tokenToEntry {
		out[tok] = e.event.Descriptor()
	}
	return out
}

// FromDescriptors reconstructs a vocabulary from a persisted token ->
// descriptor mapping. The mapping is validated before any state is built:
// duplicate descriptors and unparseable merged descriptors fail with
// ErrCorruptState and leave no partially populated vocabulary behind.
func FromDescriptors(descs map[int]string) (*Vocabulary, error) {
	tokens := make([]int, 0, len(descs))
	seen := make(map[string]int, len(descs))
	for tok, desc := range descs {
		if tok < 0 {
			return nil, fmt.Errorf("negative token %d: %w", tok, ErrCorruptState)
		}
		if prev, dup := seen[desc]; dup {
			return nil, fmt.Errorf("tokens %d and %d share descriptor %q: %w", prev, tok, desc, ErrCorruptState)
		}
		seen[desc] = tok
		tokens = append(tokens, tok)
	}
	sort.Ints(tokens)

	v := New()
	for _, tok := range tokens {
		ev, err := eventFromDescriptor(descs[tok])
		if err != nil {
			return nil, err
		}
		e := entry{event: ev}
		if ev.Type == TypeBPE {
			succession, decomposition, err := parseMergedValue(ev.Value)
			if err != nil {
				return nil, err
			}
			e.merged = &Merged{Succession: succession, Decomposition: decomposition}
		}
		v.insert(tok, e)
	}
	if err := v.checkMergedReferences(); err != nil {
		return nil, err
	}
	v.RebuildIndexes()
	return v, nil
}

// checkMergedReferences verifies that every merged token references tokens
// that exist and that decompositions are flat. A decomposition pointing at
// another merged token would make expansion unbounded, so it is rejected
// at load time rather than trusted.
func (v *Vocabulary) checkMergedReferences() error {
	for tok, e := range v.tokenToEntry {
		if e.merged == nil {
			continue
		}
		for _, s := range e.merged.Succession {
			if _, ok := v.tokenToEntry[s]; !ok {
				return fmt.Errorf("token %d: succession references unknown token %d: %w", tok, s, ErrCorruptState)
			}
		}
		for _, d := range e.merged.Decomposition {
			de, ok := v.tokenToEntry[d]
			if !ok {
				return fmt.Errorf("token %d: decomposition references unknown token %d: %w", tok, d, ErrCorruptState)
			}
			if de.merged != nil {
				return fmt.Errorf("token %d: decomposition contains merged token %d: %w", tok, d, ErrCorruptState)
			}
		}
	}
	return nil
}

func eventFromDescriptor(desc string) (Event, error) {
	typ, val, ok := strings.Cut(desc, "_")
	if !ok || typ == "" {
		return Event{}, fmt.Errorf("descriptor %q is not of the form <Type>_<Value>: %w", desc, ErrCorruptState)
	}
	return Event{Type: typ, Value: val}, nil
}
