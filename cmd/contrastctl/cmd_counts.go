package main

import (
	"fmt"
	"os"

	"contrastcore/internal/blob"
	"contrastcore/internal/counts"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Import and snapshot count tables",
}

var (
	countsDescriptors int
	countsMinCPM      float64
	countsMinSamples  int
	countsSnapshotKey string
)

var countsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Parse a count TSV, filter low-expressed features and snapshot it",
	Long: `Parses a tab-separated count table (descriptor columns first, then one
numeric column per sample), optionally drops features below a CPM floor, and
writes a compressed snapshot to the configured blob store
(CONTRASTCORE_BLOB_DRIVER: fs|s3|memory, default fs).

Example:
  contrastctl counts import counts.tsv --descriptors 2 --min-cpm 1 --min-samples 3 --key salinity/counts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open counts: %w", err)
		}
		defer func() { _ = f.Close() }()

		table, err := counts.ParseTSV(f, countsDescriptors)
		if err != nil {
			return err
		}
		logger.Info("counts parsed",
			zap.Int("features", len(table.Features)),
			zap.Int("samples", len(table.Samples)),
		)
		if countsMinSamples > 0 {
			table = table.FilterLowExpression(countsMinCPM, countsMinSamples)
			logger.Info("low-expression filter applied",
				zap.Float64("min_cpm", countsMinCPM),
				zap.Int("min_samples", countsMinSamples),
				zap.Int("features_kept", len(table.Features)),
			)
		}
		if countsSnapshotKey == "" {
			return printJSON(cmd.OutOrStdout(), map[string]int{
				"features": len(table.Features),
				"samples":  len(table.Samples),
			})
		}

		store, err := blob.Open(cmd.Context())
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		info, err := counts.WriteSnapshot(cmd.Context(), store, countsSnapshotKey, table)
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

func init() {
	countsImportCmd.Flags().IntVar(&countsDescriptors, "descriptors", 1, "Leading descriptor columns before sample counts")
	countsImportCmd.Flags().Float64Var(&countsMinCPM, "min-cpm", 1, "CPM floor for the low-expression filter")
	countsImportCmd.Flags().IntVar(&countsMinSamples, "min-samples", 0, "Samples that must reach the CPM floor (0 disables filtering)")
	countsImportCmd.Flags().StringVar(&countsSnapshotKey, "key", "", "Blob key for the snapshot (empty skips the write)")

	countsCmd.AddCommand(countsImportCmd)
}
