package types

import (
	"strings"
)

// ExtractedContext is the file-level context prepended to a selection script.
// It is built fresh on every call and never mutated afterwards.
type ExtractedContext struct {
	Imports []string `json:"imports"`
	Globals []string `json:"globals"`
}

// ClassificationKind tags how a selected fragment is turned into a script.
type ClassificationKind string

const (
	KindFunctionDef      ClassificationKind = "function_def"
	KindClassDef         ClassificationKind = "class_def"
	KindIndentedFragment ClassificationKind = "indented_fragment"
	KindExpression       ClassificationKind = "expression"
	KindStatement        ClassificationKind = "statement"
)

// Classification is the result of classifying a selection.
// Name is only set for KindFunctionDef.
type Classification struct {
	Kind  ClassificationKind `json:"kind"`
	Name  string             `json:"name,omitempty"`
	Async bool               `json:"async,omitempty"`
}

// ScriptKind names the staging slot a script is written to.
type ScriptKind string

const (
	ScriptSelection ScriptKind = "selection"
	ScriptFunction  ScriptKind = "function"
)

// SynthesizedScript is one complete, runnable unit of Python source.
type SynthesizedScript struct {
	Kind  ScriptKind `json:"kind"`
	Lines []string   `json:"lines"`
}

// Text renders the script with every line newline-terminated.
func (s SynthesizedScript) Text() string {
	if len(s.Lines) == 0 {
		return ""
	}
	return strings.Join(s.Lines, "\n") + "\n"
}

// FunctionCatalogEntry is one top-level function definition.
// OccurrenceIndex counts earlier entries with the same name, so a redefined
// function shows up twice with indexes 0 and 1.
type FunctionCatalogEntry struct {
	Name            string `json:"name"`
	OccurrenceIndex int    `json:"occurrence_index"`
	Line            int    `json:"line"`
}

// Label is the chooser label for the entry.
func (e FunctionCatalogEntry) Label() string {
	return "def " + e.Name + "()"
}
