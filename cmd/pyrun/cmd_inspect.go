package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pyrun/internal/catalog"
	"pyrun/internal/extract"
)

var jsonOutput bool

// catalogCmd lists the functions a function run can choose from
var catalogCmd = &cobra.Command{
	Use:   "catalog FILE",
	Short: "List the top-level functions of a Python file",
	Args:  cobra.ExactArgs(1),
	RunE:  showCatalog,
}

// contextCmd shows what a selection run carries along
var contextCmd = &cobra.Command{
	Use:   "context FILE",
	Short: "Show the imports and globals prepended to selection runs",
	Args:  cobra.ExactArgs(1),
	RunE:  showContext,
}

func init() {
	for _, c := range []*cobra.Command{catalogCmd, contextCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
		c.Flags().BoolVar(&readStdin, "stdin", false, "Read the buffer from stdin instead of FILE")
	}
}

func showCatalog(cmd *cobra.Command, args []string) error {
	acc, err := loadBuffer(cmd, args[0])
	if err != nil {
		return err
	}
	entries := catalog.BuildFunctionCatalog(acc.BufferLines())
	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("No functions found."))
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%5d  %s", e.Line, styles.Label.Render(e.Label()))
		if e.OccurrenceIndex > 0 {
			line += " " + styles.Muted.Render(fmt.Sprintf("(redefinition #%d)", e.OccurrenceIndex))
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func showContext(cmd *cobra.Command, args []string) error {
	acc, err := loadBuffer(cmd, args[0])
	if err != nil {
		return err
	}
	ctx := extract.ExtractContext(acc.BufferLines())
	out := cmd.OutOrStdout()

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ctx)
	}

	fmt.Fprintln(out, styles.Title.Render("# imports"))
	for _, line := range ctx.Imports {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Title.Render("# globals"))
	for _, line := range ctx.Globals {
		fmt.Fprintln(out, line)
	}
	return nil
}
