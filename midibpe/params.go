package midibpe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/midibpe/vocab"
)

// tokenToEventKey is the one field of the params record the codec
// interprets: the serialized token -> descriptor bijection. Everything
// else (pitch range, resolution table, feature flags, originating schema
// name, ...) is opaque and round-trips unchanged.
const tokenToEventKey = "token_to_event"

// Config holds the passthrough configuration fields persisted alongside
// the vocabulary.
type Config map[string]json.RawMessage

// SaveParams serializes the vocabulary bijection together with the opaque
// configuration. The bijection is written under "token_to_event" with
// tokens as decimal string keys, one descriptor per token.
func SaveParams(w io.Writer, v *vocab.Vocabulary, cfg Config) error {
	record := make(map[string]json.RawMessage, len(cfg)+1)
	for key, val := range cfg {
		if key == tokenToEventKey {
			continue
		}
		record[key] = val
	}

	bijection := make(map[string]string, v.Len())
	for tok, desc := range v.Descriptors() {
		bijection[strconv.Itoa(tok)] = desc
	}
	raw, err := json.Marshal(bijection)
	if err != nil {
		return fmt.Errorf("marshal bijection: %w", err)
	}
	record[tokenToEventKey] = raw

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	return nil
}

// LoadParams rebuilds a vocabulary and its passthrough configuration from
// a serialized params record. The bijection is validated before any
// vocabulary state is built: duplicate descriptors, non-integer token
// keys and unparseable merged descriptors fail with
// vocab.ErrCorruptState and produce no partially populated vocabulary.
// Category indexes are rebuilt on the way out.
func LoadParams(r io.Reader) (*vocab.Vocabulary, Config, error) {
	var record map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return nil, nil, fmt.Errorf("decode params: %v: %w", err, vocab.ErrCorruptState)
	}

	raw, ok := record[tokenToEventKey]
	if !ok {
		return nil, nil, fmt.Errorf("params record has no %s field: %w", tokenToEventKey, vocab.ErrCorruptState)
	}
	var bijection map[string]string
	if err := json.Unmarshal(raw, &bijection); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %v: %w", tokenToEventKey, err, vocab.ErrCorruptState)
	}

	descs := make(map[int]string, len(bijection))
	for key, desc := range bijection {
		tok, err := strconv.Atoi(key)
		if err != nil {
			return nil, nil, fmt.Errorf("token key %q is not an integer: %w", key, vocab.ErrCorruptState)
		}
		if _, dup := descs[tok]; dup {
			return nil, nil, fmt.Errorf("token %d appears twice: %w", tok, vocab.ErrCorruptState)
		}
		descs[tok] = desc
	}

	v, err := vocab.FromDescriptors(descs)
	if err != nil {
		return nil, nil, err
	}

	cfg := make(Config, len(record)-1)
	for key, val := range record {
		if key == tokenToEventKey {
			continue
		}
		cfg[key] = val
	}
	return v, cfg, nil
}

// SaveParamsFile writes the codec's vocabulary and configuration to path,
// gzipped when the path ends in .gz.
func (c *Codec) SaveParamsFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create params dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create params file: %w", err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if err := SaveParams(w, c.vocab, cfg); err != nil {
		f.Close()
		return fmt.Errorf("params file %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("params file %s: flush gzip: %w", path, err)
		}
	}
	return f.Close()
}

// LoadCodecFile restores a codec from a params file written by
// SaveParamsFile. The codec is immediately ready to apply and decompose if
// the persisted vocabulary holds merged tokens.
func LoadCodecFile(path string, opts ...Option) (*Codec, Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open params file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := maybeGunzip(f, path)
	if err != nil {
		return nil, nil, fmt.Errorf("params file %s: %w", path, err)
	}
	defer closeFn()

	v, cfg, err := LoadParams(r)
	if err != nil {
		return nil, nil, fmt.Errorf("params file %s: %w", path, err)
	}
	return New(v, opts...), cfg, nil
}

// ConfigKeys returns the passthrough keys in sorted order, for stable
// inspection output.
func (cfg Config) ConfigKeys() []string {
	keys := make([]string, 0, len(cfg))
	for key := range cfg {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
