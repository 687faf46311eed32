// Package midibpe is a reversible byte-pair-style merge codec for symbolic
// music token sequences. It learns a reduced-length alphabet by iteratively
// merging the most frequent adjacent token pair across a corpus, applies
// the learned merges to new sequences, and losslessly expands merged tokens
// back into their primitive form.
package midibpe

import (
	"context"
	"io"
	"log/slog"

	"github.com/midibpe/internal/codec"
	"github.com/midibpe/vocab"
)

// Stats summarizes a learning run: merges registered and mean track length
// before/after compression.
type Stats = codec.Stats

// ErrInvalidArgument is returned for unusable learner inputs.
var ErrInvalidArgument = codec.ErrInvalidArgument

// Tokenizer is the minimal surface the codec needs from an underlying
// tokenization scheme: it produces primitive token tracks from a score,
// maps primitive tokens back to events, and owns the base vocabulary. The
// codec composes with any such tokenizer rather than being spliced into
// its type.
type Tokenizer interface {
	TokenizeTracks(score io.Reader) ([][]int, error)
	TokensToEvents(tokens []int) ([]vocab.Event, error)
	Vocab() *vocab.Vocabulary
}

// Codec owns a vocabulary and the merge table learned on top of it. The
// zero value is not usable; construct with New, Wrap or LoadCodecFile.
type Codec struct {
	tok    Tokenizer // nil unless constructed with Wrap
	vocab  *vocab.Vocabulary
	hasBPE bool
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger routes learner progress and stats through l instead of
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) { c.logger = l }
}

// New builds a codec over an existing vocabulary. If the vocabulary was
// restored from storage and already holds merged tokens, the codec is
// immediately ready to apply and decompose.
func New(v *vocab.Vocabulary, opts ...Option) *Codec {
	c := &Codec{
		vocab:  v,
		hasBPE: v.HasBPE(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wrap builds a codec on top of a tokenizer, intercepting its token output
// on encode and its token input on decode.
func Wrap(t Tokenizer, opts ...Option) *Codec {
	c := New(t.Vocab(), opts...)
	c.tok = t
	return c
}

// Vocab returns the vocabulary the codec operates on.
func (c *Codec) Vocab() *vocab.Vocabulary {
	return c.vocab
}

// HasBPE reports whether a learned merge table is active. It flips exactly
// once: when learning completes, or immediately on restore of a vocabulary
// that contains merged tokens.
func (c *Codec) HasBPE() bool {
	return c.hasBPE
}

// Learn grows the vocabulary to targetVocabSize by merging the most
// frequent adjacent pair across the corpus, rewriting the corpus tracks as
// it goes. The corpus must be non-empty and the target strictly larger
// than the current vocabulary size, otherwise ErrInvalidArgument.
//
// Ties between equally frequent pairs resolve to the lexicographically
// smallest (a, b), making learned vocabularies reproducible across runs.
func (c *Codec) Learn(ctx context.Context, corpus [][]int, targetVocabSize int) (Stats, error) {
	stats, err := codec.Learn(ctx, corpus, targetVocabSize, c.vocab, c.logger)
	if err != nil {
		return stats, err
	}
	c.hasBPE = c.vocab.HasBPE()
	return stats, nil
}

// Apply compresses a token sequence with the learned merges. It returns
// the input unchanged when no merges have been learned.
func (c *Codec) Apply(seq []int) []int {
	if !c.hasBPE {
		return seq
	}
	return codec.Apply(seq, c.vocab)
}

// Decompose expands merged tokens back into their primitive sequences. It
// returns the input unchanged when no merges have been learned.
func (c *Codec) Decompose(seq []int) []int {
	if !c.hasBPE {
		return seq
	}
	return codec.Decompose(seq, c.vocab)
}

// EncodeTracks tokenizes a score with the wrapped tokenizer, then applies
// the learned merges to every track on the way out.
func (c *Codec) EncodeTracks(score io.Reader) ([][]int, error) {
	tracks, err := c.tok.TokenizeTracks(score)
	if err != nil {
		return nil, err
	}
	if !c.hasBPE {
		return tracks, nil
	}
	for i, track := range tracks {
		tracks[i] = codec.Apply(track, c.vocab)
	}
	return tracks, nil
}

// DecodeEvents decomposes merged tokens first, then hands the primitive
// sequence to the wrapped tokenizer.
func (c *Codec) DecodeEvents(tokens []int) ([]vocab.Event, error) {
	return c.tok.TokensToEvents(c.Decompose(tokens))
}
