package main

import (
	"fmt"
	"strconv"
	"strings"

	"contrastcore/internal/core"
	"contrastcore/pkg/design"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Create, inspect and annotate studies",
}

var (
	studyName    string
	studySamples []string
)

var studyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a study over an ordered sample list",
	Long: `Creates a study. The sample order supplied here is frozen: it fixes
the row order of every design matrix later built for the study.

Example:
  contrastctl study create --name salinity --samples s1,s2,s3,s4`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(studySamples) == 0 {
			return fmt.Errorf("at least one sample required")
		}
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		study, res, err := svc.CreateStudy(cmd.Context(), studyName, studySamples)
		if err != nil {
			return err
		}
		reportViolations(res)
		return printJSON(cmd.OutOrStdout(), study)
	},
}

var studyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored studies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		return printJSON(cmd.OutOrStdout(), svc.ListStudies())
	},
}

var (
	factorStudyID   string
	factorName      string
	factorReference string
	factorRuns      string
)

var studyAddFactorCmd = &cobra.Command{
	Use:   "add-factor",
	Short: "Attach a factor encoded from contiguous level runs",
	Long: `Attaches a categorical factor to a study. Runs are level:count pairs
in sample order; counts must sum to the study's sample count.

Example:
  contrastctl study add-factor --study 1a2b --name Treatment --reference C --runs C:3,T:3,C:3,T:3`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		runs, err := parseRuns(factorRuns)
		if err != nil {
			return err
		}
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		study, res, err := svc.AddFactor(cmd.Context(), factorStudyID, factorName, factorReference, runs)
		if err != nil {
			return err
		}
		reportViolations(res)
		return printJSON(cmd.OutOrStdout(), study)
	},
}

// parseRuns decodes a comma-separated level:count list.
func parseRuns(arg string) ([]design.Run, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, fmt.Errorf("runs required (level:count,...)")
	}
	parts := strings.Split(arg, ",")
	runs := make([]design.Run, 0, len(parts))
	for _, part := range parts {
		level, countText, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("run %q: want level:count", part)
		}
		count, err := strconv.Atoi(countText)
		if err != nil || count < 1 {
			return nil, fmt.Errorf("run %q: count must be a positive integer", part)
		}
		runs = append(runs, design.Run{Level: level, Count: count})
	}
	return runs, nil
}

func reportViolations(res core.Result) {
	for _, v := range res.Violations {
		logger.Warn("rule violation",
			zap.String("rule", v.Rule),
			zap.String("severity", string(v.Severity)),
			zap.String("message", v.Message),
		)
	}
}

func init() {
	studyCreateCmd.Flags().StringVar(&studyName, "name", "", "Study name")
	studyCreateCmd.Flags().StringSliceVar(&studySamples, "samples", nil, "Ordered sample identifiers")
	_ = studyCreateCmd.MarkFlagRequired("samples")

	studyAddFactorCmd.Flags().StringVar(&factorStudyID, "study", "", "Study identifier")
	studyAddFactorCmd.Flags().StringVar(&factorName, "name", "", "Factor name")
	studyAddFactorCmd.Flags().StringVar(&factorReference, "reference", "", "Reference level")
	studyAddFactorCmd.Flags().StringVar(&factorRuns, "runs", "", "Contiguous level runs, level:count,...")
	_ = studyAddFactorCmd.MarkFlagRequired("study")
	_ = studyAddFactorCmd.MarkFlagRequired("name")
	_ = studyAddFactorCmd.MarkFlagRequired("reference")
	_ = studyAddFactorCmd.MarkFlagRequired("runs")

	studyCmd.AddCommand(studyCreateCmd)
	studyCmd.AddCommand(studyListCmd)
	studyCmd.AddCommand(studyAddFactorCmd)
}
