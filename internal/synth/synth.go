// Package synth turns a selected Python fragment into a complete script: the
// file's imports and top-level assignments, a marker comment, and the
// fragment itself, transformed by its classification so that running the
// script surfaces a result.
package synth

import (
	"strings"

	"pyrun/internal/buffer"
	"pyrun/internal/config"
	"pyrun/internal/extract"
	"pyrun/internal/logging"
	"pyrun/internal/pysyntax"
	"pyrun/internal/types"
)

// SynthesizeSelectionScript cuts the selection rng out of lines, extracts the
// file context from all of lines and assembles the selection script.
func SynthesizeSelectionScript(lines []string, rng types.SelectionRange, cfg config.ScriptConfig) (types.SynthesizedScript, error) {
	text, err := buffer.SelectionText(lines, rng)
	if err != nil {
		return types.SynthesizedScript{}, err
	}
	if strings.TrimSpace(text) == "" {
		return types.SynthesizedScript{}, errEmptySelection()
	}
	return Synthesize(text, extract.ExtractContext(lines), cfg)
}

// Synthesize assembles a selection script from already-cut selection text.
func Synthesize(selection string, ctx types.ExtractedContext, cfg config.ScriptConfig) (types.SynthesizedScript, error) {
	timer := logging.StartTimer(logging.CategorySynth, "Synthesize")
	defer timer.Stop()

	if strings.TrimSpace(selection) == "" {
		return types.SynthesizedScript{}, errEmptySelection()
	}

	cls := Classify(selection)
	logging.SynthDebug("Classified selection as %s %s", cls.Kind, cls.Name)

	fragment := transform(selection, cls, cfg)

	out := make([]string, 0, len(ctx.Imports)+len(ctx.Globals)+len(fragment)+3)
	out = append(out, ctx.Imports...)
	out = append(out, "")
	out = append(out, ctx.Globals...)
	out = append(out, "", "# "+cfg.SelectionMarker)
	out = append(out, fragment...)

	logging.Synth("Synthesized %s script: %d lines", cls.Kind, len(out))
	return types.SynthesizedScript{Kind: types.ScriptSelection, Lines: out}, nil
}

func errEmptySelection() error {
	return types.NewInputError("selection is empty")
}

// transform applies the per-classification rewrite to the selection lines.
func transform(selection string, cls types.Classification, cfg config.ScriptConfig) []string {
	lines := trimTrailingBlank(splitLines(selection))
	code := strings.Join(pysyntax.StripLiterals(lines), "\n")

	switch cls.Kind {
	case types.KindIndentedFragment:
		return wrapIndented(lines, cfg)

	case types.KindFunctionDef:
		if pysyntax.CallsFunction(code, cls.Name) {
			return lines
		}
		out := append(lines, "")
		return append(out, pysyntax.InvocationGuard(cls.Name, cls.Name, cls.Async, guardStyle(cfg))...)

	case types.KindClassDef:
		return lines

	case types.KindExpression:
		return append(lines, printExpression(lines, cfg)...)

	default:
		trimmed := strings.TrimSpace(selection)
		if pysyntax.HasPrintCall(code) || strings.HasPrefix(trimmed, "#") {
			return lines
		}
		return append(lines, "print("+pysyntax.Quote(cfg.CompletionMarker)+")")
	}
}

// wrapIndented puts lines into a zero-argument wrapper function, one indent
// level deeper, and calls it. Blank lines stay empty.
func wrapIndented(lines []string, cfg config.ScriptConfig) []string {
	out := make([]string, 0, len(lines)+2)
	out = append(out, "def "+cfg.WrapperName+"():")
	for _, line := range lines {
		if pysyntax.IsBlank(line) {
			out = append(out, "")
			continue
		}
		out = append(out, cfg.IndentUnit+line)
	}
	return append(out, cfg.WrapperName+"()")
}

// printExpression re-evaluates the expression under the result label.
// A multi-line expression is parenthesized so its continuation lines stay
// inside brackets.
func printExpression(lines []string, cfg config.ScriptConfig) []string {
	code := strings.TrimSpace(strings.Join(pysyntax.StripComments(lines), "\n"))
	if strings.Contains(code, "\n") {
		code = "(" + code + ")"
	}
	return splitLines("print(" + pysyntax.Quote(cfg.ResultLabel) + ", " + code + ")")
}

func guardStyle(cfg config.ScriptConfig) pysyntax.GuardStyle {
	return pysyntax.GuardStyle{
		Indent:      cfg.IndentUnit,
		ResultVar:   cfg.ResultVar,
		StartMarker: cfg.StartMarker,
	}
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && pysyntax.IsBlank(lines[end-1]) {
		end--
	}
	return lines[:end]
}
