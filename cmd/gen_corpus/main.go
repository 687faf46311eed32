// gen_corpus provisions a synthetic tokenized dataset for tests and
// benchmarks: a base vocabulary params file plus a directory of token
// files with REMI-like event sequences (Bar/Position/Pitch/Velocity/
// Duration). The event values are musically plausible but the point is
// only to produce repetitive token statistics for the BPE learner.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/midibpe/midibpe"
	"github.com/midibpe/vocab"
)

var (
	outDir   = pflag.String("out", "testdata/corpus", "output directory")
	numFiles = pflag.Int("files", 8, "number of token files")
	tracks   = pflag.Int("tracks", 2, "tracks per file")
	notes    = pflag.Int("notes", 200, "notes per track")
	seed     = pflag.Int64("seed", 42, "PRNG seed")
)

func main() {
	pflag.Parse()

	v := vocab.New()
	var (
		barTok       = mustAdd(v, "Bar", "None")
		positionToks []int
		pitchToks    []int
		velocityToks []int
		durationToks []int
	)
	for pos := 0; pos < 32; pos++ {
		positionToks = append(positionToks, mustAdd(v, "Position", fmt.Sprint(pos)))
	}
	for pitch := 21; pitch <= 108; pitch++ {
		pitchToks = append(pitchToks, mustAdd(v, "Pitch", fmt.Sprint(pitch)))
	}
	for vel := 40; vel <= 120; vel += 8 {
		velocityToks = append(velocityToks, mustAdd(v, "Velocity", fmt.Sprint(vel)))
	}
	for dur := 1; dur <= 16; dur++ {
		durationToks = append(durationToks, mustAdd(v, "Duration", fmt.Sprint(dur)))
	}

	rng := rand.New(rand.NewSource(*seed))
	for f := 0; f < *numFiles; f++ {
		rec := midibpe.Record{Programs: json.RawMessage(`[[0, false]]`)}
		for t := 0; t < *tracks; t++ {
			rec.Tokens = append(rec.Tokens, genTrack(rng, barTok, positionToks, pitchToks, velocityToks, durationToks))
		}
		path := filepath.Join(*outDir, "tokens", fmt.Sprintf("sample_%03d.json", f))
		if err := midibpe.SaveTokens(path, rec); err != nil {
			log.Fatalf("write %s: %v", path, err)
		}
	}

	cfg := midibpe.Config{
		"pitch_range":   json.RawMessage(`[21, 109]`),
		"beat_res":      json.RawMessage(`{"0_4": 8}`),
		"nb_velocities": json.RawMessage(`11`),
		"encoding":      json.RawMessage(`"REMI"`),
	}
	codec := midibpe.New(v)
	paramsPath := filepath.Join(*outDir, "config.txt")
	if err := codec.SaveParamsFile(paramsPath, cfg); err != nil {
		log.Fatalf("write params: %v", err)
	}

	fmt.Fprintf(os.Stdout, "wrote %d token files and %s (vocab size %d)\n", *numFiles, paramsPath, v.Len())
}

// genTrack emits a bar/position grid with a small pool of recurring note
// figures so adjacent-pair statistics have clear winners.
func genTrack(rng *rand.Rand, bar int, positions, pitches, velocities, durations []int) []int {
	type figure struct{ pitch, velocity, duration int }
	motifs := make([]figure, 6)
	for i := range motifs {
		motifs[i] = figure{
			pitch:    pitches[rng.Intn(len(pitches))],
			velocity: velocities[rng.Intn(len(velocities))],
			duration: durations[rng.Intn(len(durations))],
		}
	}

	var track []int
	pos := 0
	track = append(track, bar)
	for n := 0; n < *notes; n++ {
		pos += 1 + rng.Intn(4)
		if pos >= len(positions) {
			pos -= len(positions)
			track = append(track, bar)
		}
		m := motifs[rng.Intn(len(motifs))]
		track = append(track, positions[pos], m.pitch, m.velocity, m.duration)
	}
	return track
}

func mustAdd(v *vocab.Vocabulary, typ, value string) int {
	tok, err := v.AddEvent(vocab.Event{Type: typ, Value: value})
	if err != nil {
		log.Fatalf("add event %s_%s: %v", typ, value, err)
	}
	return tok
}
