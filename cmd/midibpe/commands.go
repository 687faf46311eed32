package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/midibpe/midibpe"
	"github.com/midibpe/vocab"
)

func newLearnCmd() *cobra.Command {
	var (
		vocabSize     int
		outDir        string
		paramsPath    string
		filesLimit    int
		saveConverted bool
	)

	cmd := &cobra.Command{
		Use:   "learn TOKENS_DIR",
		Short: "Learn BPE merges from a directory of token files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, cfg, err := midibpe.LoadCodecFile(paramsPath)
			if err != nil {
				return err
			}

			stats, err := codec.LearnDir(cmd.Context(), args[0], vocabSize, outDir, midibpe.LearnDirOptions{
				FilesLimit:    filesLimit,
				SaveConverted: saveConverted,
				Config:        cfg,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"learned %d merges\nmean track length: %.2f -> %.2f (%.2f%%)\n",
				stats.Learned, stats.MeanLenBefore, stats.MeanLenAfter, stats.PercentChange)
			return nil
		},
	}

	cmd.Flags().IntVar(&vocabSize, "vocab-size", 0, "Target vocabulary size (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for params and converted samples (required)")
	cmd.Flags().StringVar(&paramsPath, "params", "", "Params file with the base vocabulary to grow (required)")
	cmd.Flags().IntVar(&filesLimit, "files-limit", 0, "Limit of token files to use, 0 for all")
	cmd.Flags().BoolVar(&saveConverted, "save-converted", false, "Save the BPE-compressed corpus under the output directory")
	cmd.MarkFlagRequired("vocab-size")
	cmd.MarkFlagRequired("out")
	cmd.MarkFlagRequired("params")
	return cmd
}

func newApplyCmd() *cobra.Command {
	var paramsPath, outDir string

	cmd := &cobra.Command{
		Use:   "apply DATASET_DIR",
		Short: "Apply learned merges to a tokenized dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, _, err := midibpe.LoadCodecFile(paramsPath)
			if err != nil {
				return err
			}
			return codec.ApplyDir(args[0], outDir)
		},
	}

	cmd.Flags().StringVar(&paramsPath, "params", "", "Params file with the learned vocabulary (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (required)")
	cmd.MarkFlagRequired("params")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newDecomposeCmd() *cobra.Command {
	var paramsPath, outDir string

	cmd := &cobra.Command{
		Use:   "decompose DATASET_DIR",
		Short: "Expand a BPE-compressed dataset back into primitive tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, _, err := midibpe.LoadCodecFile(paramsPath)
			if err != nil {
				return err
			}
			return codec.DecomposeDir(args[0], outDir)
		},
	}

	cmd.Flags().StringVar(&paramsPath, "params", "", "Params file with the learned vocabulary (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (required)")
	cmd.MarkFlagRequired("params")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info PARAMS_FILE",
		Short: "Validate a params file and print vocabulary statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, cfg, err := midibpe.LoadCodecFile(args[0])
			if err != nil {
				return err
			}

			v := codec.Vocab()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vocab size:    %d\n", v.Len())
			fmt.Fprintf(out, "merged tokens: %d\n", len(v.TokensOfType(vocab.TypeBPE)))
			fmt.Fprintf(out, "has bpe:       %v\n", codec.HasBPE())
			for _, key := range cfg.ConfigKeys() {
				fmt.Fprintf(out, "config %-20s %s\n", key+":", cfg[key])
			}
			return nil
		},
	}
	return cmd
}
