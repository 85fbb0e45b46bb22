// Package catalog lists the top-level functions of a Python buffer, applies
// the chooser policy, and synthesizes a script that imports the buffer's file
// as a module and calls the chosen function.
package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pyrun/internal/config"
	"pyrun/internal/logging"
	"pyrun/internal/pysyntax"
	"pyrun/internal/types"
)

// Chooser asks the user to pick one option. ok is false when the user
// cancelled; a cancellation is not an error.
type Chooser interface {
	Choose(ctx context.Context, options []string, prompt string) (choice string, ok bool, err error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, options []string, prompt string) (string, bool, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, options []string, prompt string) (string, bool, error) {
	return f(ctx, options, prompt)
}

// BuildFunctionCatalog returns every column-zero `def NAME(` header in file
// order. Redefinitions are kept and numbered by OccurrenceIndex. `async def`
// is skipped because a bare call would only create a coroutine. Lines inside
// a multi-line string or bracket are never headers.
func BuildFunctionCatalog(lines []string) []types.FunctionCatalogEntry {
	entries := []types.FunctionCatalogEntry{}
	seen := make(map[string]int)

	var cont pysyntax.Continuation
	for i, line := range lines {
		continued := cont.Open()
		cont.Feed(line)
		if continued {
			continue
		}

		name, ok := pysyntax.TopLevelDef(line)
		if !ok {
			continue
		}
		entries = append(entries, types.FunctionCatalogEntry{
			Name:            name,
			OccurrenceIndex: seen[name],
			Line:            i + 1,
		})
		seen[name]++
	}

	logging.CatalogDebug("Catalog built: %d functions", len(entries))
	return entries
}

// Labels renders the chooser options for entries, in catalog order.
func Labels(entries []types.FunctionCatalogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label()
	}
	return out
}

// Select applies the selection policy: no entries is an InputError, a single
// entry is chosen without asking, and two or more go to the chooser.
// ok is false, with a nil error, when the chooser was cancelled.
func Select(ctx context.Context, entries []types.FunctionCatalogEntry, chooser Chooser, prompt string) (types.FunctionCatalogEntry, bool, error) {
	switch len(entries) {
	case 0:
		return types.FunctionCatalogEntry{}, false, types.NewInputError("no functions found")
	case 1:
		logging.Catalog("Auto-selected %s (only function)", entries[0].Name)
		return entries[0], true, nil
	}

	if chooser == nil {
		return types.FunctionCatalogEntry{}, false, fmt.Errorf("%d functions found and no chooser available", len(entries))
	}

	choice, ok, err := chooser.Choose(ctx, Labels(entries), prompt)
	if err != nil {
		return types.FunctionCatalogEntry{}, false, fmt.Errorf("choose function: %w", err)
	}
	if !ok {
		logging.Catalog("Chooser cancelled")
		return types.FunctionCatalogEntry{}, false, nil
	}

	for _, e := range entries {
		if e.Label() == choice {
			logging.Catalog("Selected %s (line %d)", e.Name, e.Line)
			return e, true, nil
		}
	}
	return types.FunctionCatalogEntry{}, false, fmt.Errorf("chooser returned unknown option %q", choice)
}

// Find returns the first entry named name.
func Find(entries []types.FunctionCatalogEntry, name string) (types.FunctionCatalogEntry, error) {
	if len(entries) == 0 {
		return types.FunctionCatalogEntry{}, types.NewInputError("no functions found")
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return types.FunctionCatalogEntry{}, types.NewInputError("function %q not found", name)
}

// SynthesizeInvocationScript emits a script that puts the directory of
// modulePath on sys.path, imports the file by its stem and, when run
// directly, calls functionName with no arguments. A stem that is not a
// Python identifier is loaded through importlib instead of an import statement.
func SynthesizeInvocationScript(modulePath, functionName string, cfg config.ScriptConfig) (types.SynthesizedScript, error) {
	if strings.TrimSpace(modulePath) == "" {
		return types.SynthesizedScript{}, types.NewInputError("buffer has no file path; save it first")
	}
	if !pysyntax.IsIdentifier(functionName) {
		return types.SynthesizedScript{}, types.NewInputError("invalid function name %q", functionName)
	}

	abs, err := filepath.Abs(modulePath)
	if err != nil {
		return types.SynthesizedScript{}, types.NewInputError("resolve %s: %v", modulePath, err)
	}
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return types.SynthesizedScript{}, types.NewInputError("cannot derive a module name from %s", modulePath)
	}

	lines := []string{
		"import sys",
		"sys.path.insert(0, " + pysyntax.Quote(dir) + ")",
	}
	module := stem
	if pysyntax.IsIdentifier(stem) {
		lines = append(lines, "import "+stem)
	} else {
		module = cfg.ModuleVar
		lines = append(lines,
			"import importlib",
			cfg.ModuleVar+" = importlib.import_module("+pysyntax.Quote(stem)+")",
		)
	}
	lines = append(lines, "")
	lines = append(lines, pysyntax.InvocationGuard(functionName, module+"."+functionName, false, pysyntax.GuardStyle{
		Indent:      cfg.IndentUnit,
		ResultVar:   cfg.ResultVar,
		StartMarker: cfg.StartMarker,
	})...)

	logging.Catalog("Invocation script for %s.%s (%s)", stem, functionName, dir)
	return types.SynthesizedScript{Kind: types.ScriptFunction, Lines: lines}, nil
}
