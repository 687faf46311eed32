package midibpe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrMalformedRecord is returned for a token-file record that is missing
// its tokens field or contains non-integer entries.
var ErrMalformedRecord = errors.New("midibpe: malformed token record")

// Record is the on-disk corpus representation: one ordered token sequence
// per track, plus opaque per-track instrument metadata that the codec
// passes through untouched.
type Record struct {
	Tokens   [][]int         `json:"tokens"`
	Programs json.RawMessage `json:"programs,omitempty"`
}

// ReadRecord decodes a token-file record, validating the tokens field.
func ReadRecord(r io.Reader) (Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Record{}, fmt.Errorf("read token record: %w", err)
	}

	var raw struct {
		Tokens   json.RawMessage `json:"tokens"`
		Programs json.RawMessage `json:"programs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("decode token record: %v: %w", err, ErrMalformedRecord)
	}
	if raw.Tokens == nil {
		return Record{}, fmt.Errorf("token record has no tokens field: %w", ErrMalformedRecord)
	}

	var tokens [][]int
	if err := json.Unmarshal(raw.Tokens, &tokens); err != nil {
		return Record{}, fmt.Errorf("tokens field is not integer tracks: %v: %w", err, ErrMalformedRecord)
	}
	for _, track := range tokens {
		for _, tok := range track {
			if tok < 0 {
				return Record{}, fmt.Errorf("negative token %d: %w", tok, ErrMalformedRecord)
			}
		}
	}
	return Record{Tokens: tokens, Programs: raw.Programs}, nil
}

// WriteRecord encodes a token-file record.
func WriteRecord(w io.Writer, rec Record) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}
	return nil
}

// LoadTokens reads a token file from disk. Files ending in .gz are
// transparently gunzipped.
func LoadTokens(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := maybeGunzip(f, path)
	if err != nil {
		return Record{}, fmt.Errorf("token file %s: %w", path, err)
	}
	defer closeFn()

	rec, err := ReadRecord(r)
	if err != nil {
		return Record{}, fmt.Errorf("token file %s: %w", path, err)
	}
	return rec, nil
}

// SaveTokens writes a token file, creating parent directories as needed.
// Files ending in .gz are transparently gzipped.
func SaveTokens(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create token file dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if err := WriteRecord(w, rec); err != nil {
		f.Close()
		return fmt.Errorf("token file %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("token file %s: flush gzip: %w", path, err)
		}
	}
	return f.Close()
}

func maybeGunzip(f *os.File, path string) (io.Reader, func() error, error) {
	if !strings.HasSuffix(path, ".gz") {
		return f, func() error { return nil }, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("open gzip: %w", err)
	}
	return gz, gz.Close, nil
}
