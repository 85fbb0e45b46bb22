// Command pyrun runs a selection or a top-level function of a Python file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pyrun/cmd/pyrun/ui"
	"pyrun/internal/config"
	"pyrun/internal/types"
)

var (
	// Global flags
	verbose    bool
	configPath string
	noColor    bool

	// Set up by PersistentPreRunE
	logger *zap.Logger
	cfg    *config.Config
	styles = ui.PlainStyles()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pyrun",
	Short: "Run Python selections and functions straight from the editor",
	Long: `pyrun turns the current selection of a Python file, or one of its
top-level functions, into a standalone script and runs it.

A selection run carries the file's imports and column-zero globals along so
the fragment sees the names it refers to. A function run imports the file
as a module and calls the chosen function with no arguments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := effectiveConfigPath()
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		logger.Debug("Config loaded", zap.String("path", path), zap.String("python", cfg.Python.Binary))

		styles = ui.DefaultStyles(noColor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(selectionCmd)
	rootCmd.AddCommand(functionCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var de *types.DownstreamError
		if !errors.As(err, &de) {
			fmt.Fprintln(os.Stderr, styles.Error.Render("Error:"), err)
		}
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status: input errors are 2,
// a failed script passes its own status through, anything else is 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var de *types.DownstreamError
	if errors.As(err, &de) {
		if de.ExitCode > 0 {
			return de.ExitCode
		}
		return 1
	}
	if errors.Is(err, types.ErrInput) {
		return 2
	}
	return 1
}
