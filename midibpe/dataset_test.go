package midibpe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midibpe/vocab"
)

func writeTestDataset(t *testing.T, dir string) map[string][][]int {
	t.Helper()
	samples := map[string][][]int{
		"a.json":                       {{0, 1, 2, 3, 0, 1, 2, 3}, {0, 1, 0, 1}},
		filepath.Join("sub", "b.json"): {{2, 3, 2, 3, 0, 1}},
		"c.json.gz":                    {{0, 1, 2, 3}},
	}
	for name, tracks := range samples {
		rec := Record{Tokens: tracks, Programs: json.RawMessage(`[[0, false]]`)}
		require.NoError(t, SaveTokens(filepath.Join(dir, name), rec))
	}
	return samples
}

func newBaseCodec(t *testing.T) *Codec {
	t.Helper()
	v := vocab.New()
	for i := 0; i < 4; i++ {
		_, err := v.AddEvent(vocab.Event{Type: "Pitch", Value: fmt.Sprint(60 + i)})
		require.NoError(t, err)
	}
	return New(v)
}

func TestLearnDirEndToEnd(t *testing.T) {
	tokensDir := t.TempDir()
	outDir := t.TempDir()
	samples := writeTestDataset(t, tokensDir)

	c := newBaseCodec(t)
	stats, err := c.LearnDir(context.Background(), tokensDir, 6, outDir, LearnDirOptions{
		SaveConverted: true,
		Config:        testConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Learned)
	assert.Less(t, stats.MeanLenAfter, stats.MeanLenBefore)
	assert.Negative(t, stats.PercentChange)

	// The params file restores an equivalent codec.
	restored, cfg, err := LoadCodecFile(filepath.Join(outDir, "config.txt"))
	require.NoError(t, err)
	assert.True(t, restored.HasBPE())
	assert.JSONEq(t, `[21, 109]`, string(cfg["pitch_range"]))

	// Converted samples keep their relative paths and program metadata,
	// and match what Apply produces on the originals.
	for name, tracks := range samples {
		rec, err := LoadTokens(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.JSONEq(t, `[[0, false]]`, string(rec.Programs), name)

		for i, track := range tracks {
			if diff := cmp.Diff(restored.Apply(track), rec.Tokens[i]); diff != "" {
				t.Fatalf("%s track %d (-apply +converted):\n%s", name, i, diff)
			}
		}
	}
}

func TestLearnDirFilesLimit(t *testing.T) {
	tokensDir := t.TempDir()
	outDir := t.TempDir()
	writeTestDataset(t, tokensDir)

	c := newBaseCodec(t)
	// Only a.json feeds the learner (sorted path order).
	_, err := c.LearnDir(context.Background(), tokensDir, 5, outDir, LearnDirOptions{FilesLimit: 1})
	require.NoError(t, err)

	succession, ok := c.Vocab().Succession(4)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, succession)
}

func TestLearnDirNoTokenFiles(t *testing.T) {
	c := newBaseCodec(t)
	_, err := c.LearnDir(context.Background(), t.TempDir(), 6, t.TempDir(), LearnDirOptions{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestApplyDirAndDecomposeDirRoundTrip(t *testing.T) {
	tokensDir := t.TempDir()
	learnOut := t.TempDir()
	applyOut := t.TempDir()
	decomposeOut := t.TempDir()
	samples := writeTestDataset(t, tokensDir)

	c := newBaseCodec(t)
	_, err := c.LearnDir(context.Background(), tokensDir, 6, learnOut, LearnDirOptions{})
	require.NoError(t, err)

	require.NoError(t, c.ApplyDir(tokensDir, applyOut))
	require.NoError(t, c.DecomposeDir(applyOut, decomposeOut))

	for name, tracks := range samples {
		compressed, err := LoadTokens(filepath.Join(applyOut, name))
		require.NoError(t, err)
		expanded, err := LoadTokens(filepath.Join(decomposeOut, name))
		require.NoError(t, err)

		for i, track := range tracks {
			assert.Equal(t, c.Apply(track), compressed.Tokens[i], "%s track %d", name, i)
			assert.Equal(t, track, expanded.Tokens[i], "%s track %d", name, i)
		}
	}
}

func TestApplyDirWithoutMergesIsNoOp(t *testing.T) {
	tokensDir := t.TempDir()
	outDir := t.TempDir()
	writeTestDataset(t, tokensDir)

	c := newBaseCodec(t)
	require.NoError(t, c.ApplyDir(tokensDir, outDir))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
