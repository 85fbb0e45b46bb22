package config

import (
	"fmt"
	"strings"
)

// ScriptConfig holds the names and markers emitted into synthesized scripts.
type ScriptConfig struct {
	WrapperName      string `yaml:"wrapper_name"`      // zero-argument wrapper for indented fragments
	IndentUnit       string `yaml:"indent_unit"`       // one extra indentation level
	ResultVar        string `yaml:"result_var"`        // holds a function's return value
	ModuleVar        string `yaml:"module_var"`        // holds an importlib-loaded module
	StartMarker      string `yaml:"start_marker"`      // printed before a function is called
	ResultLabel      string `yaml:"result_label"`      // printed before an expression's value
	CompletionMarker string `yaml:"completion_marker"` // printed after a plain statement block
	SelectionMarker  string `yaml:"selection_marker"`  // comment above the selected fragment
}

// DefaultScriptConfig returns the default script names and markers.
func DefaultScriptConfig() ScriptConfig {
	return ScriptConfig{
		WrapperName:      "_pyrun_selection",
		IndentUnit:       "    ",
		ResultVar:        "_pyrun_result",
		ModuleVar:        "_pyrun_module",
		StartMarker:      "Running",
		ResultLabel:      "Result:",
		CompletionMarker: "Done.",
		SelectionMarker:  "--- selection ---",
	}
}

// Validate checks the emitted names can appear in Python source.
func (s ScriptConfig) Validate() error {
	for field, value := range map[string]string{
		"script.wrapper_name": s.WrapperName,
		"script.result_var":   s.ResultVar,
		"script.module_var":   s.ModuleVar,
	} {
		if err := checkIdentifier(field, value); err != nil {
			return err
		}
	}
	if s.IndentUnit == "" || strings.Trim(s.IndentUnit, " \t") != "" {
		return fmt.Errorf("script.indent_unit must be spaces or tabs, got %q", s.IndentUnit)
	}
	if strings.ContainsAny(s.SelectionMarker, "\r\n") {
		return fmt.Errorf("script.selection_marker must be a single line")
	}
	return nil
}
