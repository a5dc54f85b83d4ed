// polarcheck compiles and validates declarative authorization policies
// described by a YAML manifest: registered classes, actor and resource
// blocks, and optional rule prototypes. It prints the rules the shorthand
// implications compile down to, or every diagnostic that blocked them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	watch   bool
	noColor bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "polarcheck [manifest...]",
	Short: "Compile and validate authorization policy manifests",
	Long: `polarcheck loads one or more policy manifests, registers their classes,
indexes their actor/resource blocks, rewrites shorthand implications into
has_role/has_permission/has_relation rules, and validates every rule against
the declared prototypes.

Exit status is non-zero if any manifest fails to compile.`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := newPrinter(cmd.OutOrStdout(), !noColor)
		if watch {
			return watchManifests(cmd.Context(), args, out)
		}

		failed := false
		for _, path := range args {
			if !checkManifest(path, out) {
				failed = true
			}
		}
		if failed {
			return fmt.Errorf("policy validation failed")
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "recheck manifests whenever they change")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable styled output")
}

// checkManifest compiles one manifest and prints the outcome, reporting
// whether it compiled cleanly.
func checkManifest(path string, out *printer) bool {
	manifest, err := LoadManifest(path)
	if err != nil {
		out.failure(path, err)
		return false
	}

	report, err := manifest.Compile(logger)
	if err != nil {
		out.failure(path, err)
		return false
	}

	out.success(path, report)
	return true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
