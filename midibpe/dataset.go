package midibpe

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// LearnDirOptions tunes LearnDir.
type LearnDirOptions struct {
	// FilesLimit caps how many token files feed the learner; 0 means all.
	// Files are taken in sorted path order so runs are reproducible.
	FilesLimit int
	// SaveConverted writes the corpus back out in compressed form under
	// the output directory, preserving relative paths.
	SaveConverted bool
	// Config is persisted alongside the learned vocabulary.
	Config Config
	// ParamsName overrides the params file name, default "config.txt"
	// (JSON content; the .txt suffix keeps it out of token-file globs).
	ParamsName string
}

// LearnDir learns merges from every token file under tokensDir and saves
// the resulting vocabulary (and optionally the rewritten corpus) under
// outDir.
func (c *Codec) LearnDir(ctx context.Context, tokensDir string, targetVocabSize int, outDir string, opts LearnDirOptions) (Stats, error) {
	paths, err := listTokenFiles(tokensDir)
	if err != nil {
		return Stats{}, err
	}
	if opts.FilesLimit > 0 && opts.FilesLimit < len(paths) {
		paths = paths[:opts.FilesLimit]
	}
	if len(paths) == 0 {
		return Stats{}, fmt.Errorf("no token files under %s: %w", tokensDir, ErrInvalidArgument)
	}

	records := make([]Record, len(paths))
	var corpus [][]int
	trackOwner := make([]int, 0) // corpus track index -> record index
	for i, rel := range paths {
		rec, err := LoadTokens(filepath.Join(tokensDir, rel))
		if err != nil {
			return Stats{}, err
		}
		records[i] = rec
		for _, track := range rec.Tokens {
			corpus = append(corpus, track)
			trackOwner = append(trackOwner, i)
		}
	}

	c.logger.Info("learning bpe from token files",
		"files", len(paths), "tracks", len(corpus), "target_vocab_size", targetVocabSize)

	stats, err := c.Learn(ctx, corpus, targetVocabSize)
	if err != nil {
		return stats, err
	}

	// Fold the rewritten tracks back into their source records.
	cursor := make([]int, len(records))
	for t, track := range corpus {
		rec := trackOwner[t]
		records[rec].Tokens[cursor[rec]] = track
		cursor[rec]++
	}

	if opts.SaveConverted {
		for i, rel := range paths {
			if err := SaveTokens(filepath.Join(outDir, rel), records[i]); err != nil {
				return stats, err
			}
		}
	}

	name := opts.ParamsName
	if name == "" {
		name = "config.txt"
	}
	if err := c.SaveParamsFile(filepath.Join(outDir, name), opts.Config); err != nil {
		return stats, err
	}
	return stats, nil
}

// ApplyDir compresses an already tokenized dataset with the learned
// merges, preserving relative paths and program metadata. It is a no-op
// when no merges have been learned.
func (c *Codec) ApplyDir(datasetDir, outDir string) error {
	if !c.hasBPE {
		return nil
	}
	return c.rewriteDir(datasetDir, outDir, c.Apply)
}

// DecomposeDir expands a BPE-compressed dataset back into primitive
// tokens, preserving relative paths and program metadata.
func (c *Codec) DecomposeDir(datasetDir, outDir string) error {
	return c.rewriteDir(datasetDir, outDir, c.Decompose)
}

func (c *Codec) rewriteDir(datasetDir, outDir string, rewrite func([]int) []int) error {
	paths, err := listTokenFiles(datasetDir)
	if err != nil {
		return err
	}
	for _, rel := range paths {
		rec, err := LoadTokens(filepath.Join(datasetDir, rel))
		if err != nil {
			return err
		}
		for i, track := range rec.Tokens {
			rec.Tokens[i] = rewrite(track)
		}
		if err := SaveTokens(filepath.Join(outDir, rel), rec); err != nil {
			return err
		}
	}
	return nil
}

// listTokenFiles returns every .json / .json.gz path under dir, relative
// to dir and sorted.
func listTokenFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.gz") {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk token dir %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
