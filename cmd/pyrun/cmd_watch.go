package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pyrun/internal/system"
	"pyrun/internal/types"
	"pyrun/internal/watch"
)

var watchName string

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-run a function every time FILE is saved",
	Long: `Runs the named top-level function of FILE once, then again after every
save. Saves arriving in a burst trigger a single run. Stop with Ctrl-C.

Example:
  pyrun watch tools.py --name nightly`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchName, "name", "n", "", "Function to run on every save")
	_ = watchCmd.MarkFlagRequired("name")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	rt, err := system.Boot(*cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()

	runOnce := func(ctx context.Context) {
		if err := watchRun(ctx, cmd, rt, path); err != nil {
			var de *types.DownstreamError
			if !errors.As(err, &de) {
				fmt.Fprintln(cmd.ErrOrStderr(), styles.Error.Render("Error:"), err)
			}
		}
	}

	w, err := watch.New(path, cfg.GetWatchDebounce(), runOnce)
	if err != nil {
		return err
	}
	defer w.Stop()

	runOnce(ctx)
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render(fmt.Sprintf("Watching %s for changes...", w.Path())))

	<-ctx.Done()
	stats := w.Stats()
	logger.Debug("Watch stopped",
		zap.Int("events", stats.Events),
		zap.Int("triggers", stats.Triggers),
		zap.Int("errors", stats.Errors))
	return nil
}

// watchRun reloads the file from disk and runs the function once. A failing
// script is reported and watching continues.
func watchRun(ctx context.Context, cmd *cobra.Command, rt *system.Runtime, path string) error {
	acc, err := loadBuffer(cmd, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), styles.Title.Render(fmt.Sprintf("--- %s()", watchName)))
	h, err := rt.Service.RunFunction(ctx, acc, nil, watchName)
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	return follow(ctx, cmd, rt, h)
}
