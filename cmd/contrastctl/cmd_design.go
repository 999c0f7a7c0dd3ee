package main

import (
	"fmt"
	"strings"

	"contrastcore/internal/core"
	"contrastcore/pkg/domain"

	"github.com/spf13/cobra"
)

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Build and inspect design matrices",
}

var (
	designStudyID string
	designParam   string
)

var designBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a design matrix for a study",
	Long: `Builds and stores a design matrix under the requested parametrization.

Parametrizations:
  with-intercept              reference levels absorbed into an intercept
  no-intercept-combined-group one indicator column per factor-level combination

Example:
  contrastctl design build --study 1a2b --parametrization no-intercept-combined-group`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := parseParametrization(designParam)
		if err != nil {
			return err
		}
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		created, res, err := svc.BuildDesign(cmd.Context(), designStudyID, p)
		if err != nil {
			return err
		}
		reportViolations(res)
		return printJSON(cmd.OutOrStdout(), created)
	},
}

var designListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored designs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		return printJSON(cmd.OutOrStdout(), svc.ListDesigns())
	},
}

var (
	contrastDesignID string
	contrastFactor   string
	contrastTarget   string
	contrastBaseline string
	contrastWithin   []string
)

var contrastCmd = &cobra.Command{
	Use:   "contrast",
	Short: "Resolve symbolic contrasts against stored designs",
}

var contrastResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a target-vs-baseline comparison to coefficients",
	Long: `Resolves a symbolic comparison against a stored design matrix. The
result is either a single coefficient index or a weight vector over the
design's columns. Every factor other than the contrasted one must be pinned
with --within.

Example:
  contrastctl contrast resolve --design 3c4d --factor Treatment --target T --baseline C --within Location=beach`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		within, err := parseWithin(contrastWithin)
		if err != nil {
			return err
		}
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()
		contrast, err := svc.ResolveContrast(cmd.Context(), contrastDesignID, core.ContrastRequest{
			Factor:   contrastFactor,
			Target:   contrastTarget,
			Baseline: contrastBaseline,
			Within:   within,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), contrast)
	},
}

func parseParametrization(arg string) (domain.Parametrization, error) {
	switch domain.Parametrization(arg) {
	case domain.ParamWithIntercept:
		return domain.ParamWithIntercept, nil
	case domain.ParamCombinedGroups:
		return domain.ParamCombinedGroups, nil
	default:
		return "", fmt.Errorf("unknown parametrization %q (want %s or %s)", arg, domain.ParamWithIntercept, domain.ParamCombinedGroups)
	}
}

func parseWithin(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	within := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		factor, level, ok := strings.Cut(pair, "=")
		if !ok || factor == "" || level == "" {
			return nil, fmt.Errorf("within %q: want factor=level", pair)
		}
		within[factor] = level
	}
	return within, nil
}

func init() {
	designBuildCmd.Flags().StringVar(&designStudyID, "study", "", "Study identifier")
	designBuildCmd.Flags().StringVar(&designParam, "parametrization", string(domain.ParamCombinedGroups), "Design parametrization")
	_ = designBuildCmd.MarkFlagRequired("study")

	contrastResolveCmd.Flags().StringVar(&contrastDesignID, "design", "", "Design identifier")
	contrastResolveCmd.Flags().StringVar(&contrastFactor, "factor", "", "Contrasted factor")
	contrastResolveCmd.Flags().StringVar(&contrastTarget, "target", "", "Target level")
	contrastResolveCmd.Flags().StringVar(&contrastBaseline, "baseline", "", "Baseline level")
	contrastResolveCmd.Flags().StringSliceVar(&contrastWithin, "within", nil, "Pinned levels for the other factors, factor=level")
	_ = contrastResolveCmd.MarkFlagRequired("design")
	_ = contrastResolveCmd.MarkFlagRequired("factor")
	_ = contrastResolveCmd.MarkFlagRequired("target")
	_ = contrastResolveCmd.MarkFlagRequired("baseline")

	designCmd.AddCommand(designBuildCmd)
	designCmd.AddCommand(designListCmd)
	contrastCmd.AddCommand(contrastResolveCmd)
}
