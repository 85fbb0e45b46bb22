// Package extract scans a Python buffer for the file-level context a selected
// fragment needs: its import statements and its top-level assignments.
//
// The scan is a single forward pass over physical lines driven by a two-state
// machine (Default, InClassBody). Only one open class body is tracked: a
// class nested inside another class replaces the outer one, and leaving the
// inner body also ends the outer. That limitation is kept on purpose; the
// extractor is a heuristic, not a parser.
package extract

import (
	"strings"

	"pyrun/internal/logging"
	"pyrun/internal/pysyntax"
	"pyrun/internal/types"
)

type scanState int

const (
	stateDefault scanState = iota
	stateInClassBody
)

// target is the list a multi-line statement is being collected into.
type target int

const (
	targetNone target = iota
	targetImports
	targetGlobals
)

type scanner struct {
	state           scanState
	classBodyIndent int
	cont            pysyntax.Continuation
	collecting      target
	imports         []string
	globals         []string
}

// ExtractContext returns the imports and top-level assignments of lines, in
// file order. Imports are collected at any depth, including inside classes and
// functions, and are stored without their leading indentation. Assignments
// are collected only at column zero and never from a class body.
//
// Physical lines that continue an earlier statement (open brackets, a pending
// triple-quoted string, a trailing backslash) belong to that statement: they
// are copied along with it when it is collected and never classified on their own.
func ExtractContext(lines []string) types.ExtractedContext {
	timer := logging.StartTimer(logging.CategoryExtract, "ExtractContext")
	defer timer.Stop()

	s := &scanner{}
	for _, line := range lines {
		s.scan(line)
	}

	logging.ExtractDebug("Extracted %d imports, %d globals from %d lines", len(s.imports), len(s.globals), len(lines))
	return types.ExtractedContext{
		Imports: nonNil(s.imports),
		Globals: nonNil(s.globals),
	}
}

func (s *scanner) scan(line string) {
	if s.cont.Open() {
		s.cont.Feed(line)
		s.collect(line)
		if !s.cont.Open() {
			s.collecting = targetNone
		}
		return
	}
	s.cont.Feed(line)

	// A dedent to the header's level closes the class body before this
	// line is looked at.
	if s.state == stateInClassBody && !pysyntax.IsBlank(line) && !pysyntax.IsComment(line) &&
		pysyntax.Indent(line) <= s.classBodyIndent {
		s.state = stateDefault
	}

	if _, ok := pysyntax.ClassHeader(line); ok {
		s.state = stateInClassBody
		s.classBodyIndent = pysyntax.Indent(line)
	}

	switch {
	case pysyntax.IsImport(line):
		s.start(targetImports, strings.TrimLeft(line, " \t"))
	case s.isGlobal(line):
		s.start(targetGlobals, line)
	}
}

func (s *scanner) isGlobal(line string) bool {
	if s.state == stateInClassBody || pysyntax.HasLeadingWhitespace(line) {
		return false
	}
	if _, _, ok := pysyntax.DefHeader(line); ok {
		return false
	}
	return pysyntax.IsGlobalAssignment(line)
}

// start records the first line of a statement and keeps collecting into the
// same list while the statement stays open.
func (s *scanner) start(t target, line string) {
	s.collecting = t
	s.collect(line)
	if !s.cont.Open() {
		s.collecting = targetNone
	}
}

func (s *scanner) collect(line string) {
	switch s.collecting {
	case targetImports:
		s.imports = append(s.imports, line)
	case targetGlobals:
		s.globals = append(s.globals, line)
	}
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
