package main

import (
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Filter and intersect stored result tables",
}

var (
	resultsTableID string
	resultsTau     float64
	resultsOtherID string
)

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored result tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		return printJSON(cmd.OutOrStdout(), svc.ListResultTables())
	},
}

var resultsFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep features with adjusted p-value at or below the threshold",
	Long: `Filters a stored result table to its significant prefix: rows whose
adjusted p-value is at or below --tau, in the stored significance order.

Example:
  contrastctl results filter --table 5e6f --tau 0.05`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		rows, err := svc.SignificantFeatures(cmd.Context(), resultsTableID, resultsTau)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rows)
	},
}

var resultsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count features passing the threshold",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		n, err := svc.CountSignificant(cmd.Context(), resultsTableID, resultsTau)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]int{"significant": n})
	},
}

var resultsIntersectCmd = &cobra.Command{
	Use:   "intersect",
	Short: "Intersect the significant features of two result tables",
	Long: `Returns the features significant in both tables at --tau, carrying
the first table's statistics in the first table's order.

Example:
  contrastctl results intersect --table 5e6f --other 7a8b --tau 0.05`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		rows, err := svc.IntersectResults(cmd.Context(), resultsTableID, resultsOtherID, resultsTau)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rows)
	},
}

func init() {
	for _, c := range []*cobra.Command{resultsFilterCmd, resultsCountCmd, resultsIntersectCmd} {
		c.Flags().StringVar(&resultsTableID, "table", "", "Result table identifier")
		c.Flags().Float64Var(&resultsTau, "tau", 0.05, "Adjusted p-value threshold")
		_ = c.MarkFlagRequired("table")
	}
	resultsIntersectCmd.Flags().StringVar(&resultsOtherID, "other", "", "Second result table identifier")
	_ = resultsIntersectCmd.MarkFlagRequired("other")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsFilterCmd)
	resultsCmd.AddCommand(resultsCountCmd)
	resultsCmd.AddCommand(resultsIntersectCmd)
}
