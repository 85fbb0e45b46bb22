package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pyrun/cmd/pyrun/ui"
	"pyrun/internal/buffer"
	"pyrun/internal/pycheck"
	"pyrun/internal/system"
	"pyrun/internal/tactile"
	"pyrun/internal/types"
)

var (
	selectionRange string
	functionName   string
	readStdin      bool
	dryRun         bool
)

var selectionCmd = &cobra.Command{
	Use:   "selection FILE",
	Short: "Run the selected part of a Python file",
	Long: `Synthesizes a script from a selection of FILE and runs it.

The file's imports and column-zero globals are prepended. A function
definition gets a direct-execution guard that calls it, an expression has
its value printed, and an indented fragment is wrapped in a function.

Example:
  pyrun selection tools.py --range 12-18
  pyrun selection tools.py --range 20:5-20:31
  pyrun selection tools.py --range 30 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runSelection,
}

var functionCmd = &cobra.Command{
	Use:   "function FILE",
	Short: "Run a top-level function of a Python file",
	Long: `Lists the column-zero functions of FILE and runs one of them.

With a single function it runs at once; with several an interactive chooser
opens unless --name picks one.

Example:
  pyrun function tools.py
  pyrun function tools.py --name nightly`,
	Args: cobra.ExactArgs(1),
	RunE: runFunction,
}

func init() {
	selectionCmd.Flags().StringVarP(&selectionRange, "range", "r", "", "Selection as L:C-L:C, L-L or L (1-based, inclusive; a bare line means the whole line)")
	_ = selectionCmd.MarkFlagRequired("range")

	functionCmd.Flags().StringVarP(&functionName, "name", "n", "", "Function to run, bypassing the chooser")

	for _, c := range []*cobra.Command{selectionCmd, functionCmd} {
		c.Flags().BoolVar(&readStdin, "stdin", false, "Read the buffer from stdin instead of FILE (FILE still names the module)")
		c.Flags().BoolVar(&dryRun, "dry-run", false, "Print the synthesized script instead of running it")
	}
}

func runSelection(cmd *cobra.Command, args []string) error {
	rng, err := buffer.ParseRange(selectionRange)
	if err != nil {
		return err
	}
	acc, err := loadBuffer(cmd, args[0])
	if err != nil {
		return err
	}
	acc = acc.WithRange(rng)

	rt, err := system.Boot(*cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()

	if dryRun {
		script, err := rt.Service.PrepareSelection(ctx, acc)
		if err != nil {
			return err
		}
		return printScript(cmd.OutOrStdout(), script, rt.Service.Check(ctx, script))
	}

	logger.Debug("Running selection", zap.String("file", acc.FilePath()), zap.String("range", rng.String()))
	h, err := rt.Service.RunSelection(ctx, acc)
	if err != nil {
		return err
	}
	return follow(ctx, cmd, rt, h)
}

func runFunction(cmd *cobra.Command, args []string) error {
	acc, err := loadBuffer(cmd, args[0])
	if err != nil {
		return err
	}

	rt, err := system.Boot(*cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()
	chooser := ui.TerminalChooser{Styles: styles, Output: cmd.ErrOrStderr(), UseTTY: readStdin}

	if dryRun {
		script, entry, ok, err := rt.Service.PrepareFunction(ctx, acc, chooser, functionName)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render("Cancelled."))
			return nil
		}
		logger.Debug("Prepared function", zap.String("name", entry.Name), zap.Int("line", entry.Line))
		return printScript(cmd.OutOrStdout(), script, rt.Service.Check(ctx, script))
	}

	h, err := rt.Service.RunFunction(ctx, acc, chooser, functionName)
	if err != nil {
		return err
	}
	if h == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render("Cancelled."))
		return nil
	}
	return follow(ctx, cmd, rt, h)
}

func loadBuffer(cmd *cobra.Command, path string) (*buffer.Snapshot, error) {
	if readStdin {
		return buffer.FromReader(cmd.InOrStdin(), path)
	}
	acc, err := buffer.FromFile(path)
	if err != nil {
		return nil, types.NewInputError("%v", err)
	}
	return acc, nil
}

// follow relays a run's output verbatim until it exits, then flushes the
// history callback. It is the only place that waits on a run.
func follow(ctx context.Context, cmd *cobra.Command, rt *system.Runtime, h *tactile.Handle) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	for ev := range h.Events() {
		switch ev.Kind {
		case tactile.EventStdout:
			_, _ = out.Write(ev.Data)
		case tactile.EventStderr:
			_, _ = errOut.Write(ev.Data)
		}
	}

	res, err := h.Wait(ctx)
	if err != nil {
		return err
	}
	rt.Runner.Wait()

	logger.Debug("Run finished",
		zap.String("run_id", h.ID),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration))
	if res.Error != "" {
		return fmt.Errorf("run %s: %s", h.ID, res.Error)
	}
	if derr := res.DownstreamError(); derr != nil {
		fmt.Fprintln(errOut, styles.Error.Render(fmt.Sprintf("exit status %d", res.ExitCode)))
		return derr
	}
	return nil
}

func printScript(w io.Writer, script types.SynthesizedScript, issues []pycheck.Issue) error {
	rendered, err := ui.RenderScript(script.Text(), 100, styles)
	if err != nil {
		return err
	}
	fmt.Fprint(w, rendered)
	for _, is := range issues {
		fmt.Fprintln(w, styles.Warning.Render("syntax:"), is)
	}
	return nil
}
