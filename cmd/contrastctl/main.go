// Command contrastctl manages differential-expression studies from the shell:
// creating studies and factors, building design matrices, resolving contrasts
// and filtering stored result tables.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"contrastcore/internal/core"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contrastctl",
	Short: "Manage differential expression studies, designs and results",
	Long: `contrastctl drives the study workbench: encode experimental factors,
build design matrices under either parametrization, resolve symbolic
contrasts and filter stored result tables by adjusted p-value.

Storage backend selection follows CONTRASTCORE_STORAGE_DRIVER
(memory|sqlite|postgres, default sqlite).`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if logger != nil {
			return nil
		}
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// zapKV adapts a zap sugared logger to the service logging contract.
type zapKV struct{ s *zap.SugaredLogger }

func (l zapKV) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapKV) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapKV) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapKV) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

// openService wires the persistent store, rules engine and logger. The
// returned cleanup closes durable backends when they expose a Close method.
func openService() (*core.Service, func(), error) {
	engine := core.NewRulesEngine()
	engine.Register(core.NewReplicationRule(2))
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	cleanup := func() {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	svc := core.NewService(store, core.WithLogger(zapKV{s: logger.Sugar()}))
	return svc, cleanup, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(designCmd)
	rootCmd.AddCommand(contrastCmd)
	rootCmd.AddCommand(countsCmd)
	rootCmd.AddCommand(resultsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
