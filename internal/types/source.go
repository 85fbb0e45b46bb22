// Package types provides the shared model of pyrun: buffer snapshots,
// selection ranges, extracted context, classifications, synthesized scripts
// and the error taxonomy.
// It has no dependencies on the other pyrun packages so every layer can import it.
package types

import (
	"fmt"
)

// SourceBuffer is an immutable snapshot of a file's lines taken when an
// operation is triggered.
type SourceBuffer struct {
	lines []string
}

// NewSourceBuffer copies lines into a new snapshot.
func NewSourceBuffer(lines []string) SourceBuffer {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return SourceBuffer{lines: cp}
}

// Lines returns a copy of the snapshot's lines.
func (b SourceBuffer) Lines() []string {
	cp := make([]string, len(b.lines))
	copy(cp, b.lines)
	return cp
}

// Len returns the number of lines.
func (b SourceBuffer) Len() int {
	return len(b.lines)
}

// Line returns the 1-indexed line n.
func (b SourceBuffer) Line(n int) (string, bool) {
	if n < 1 || n > len(b.lines) {
		return "", false
	}
	return b.lines[n-1], true
}

// SelectionRange is an inclusive, 1-indexed range over a SourceBuffer.
// Columns count runes.
type SelectionRange struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// String renders the range as "L:C-L:C".
func (r SelectionRange) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine, r.StartColumn, r.EndLine, r.EndColumn)
}

// Validate checks the range against a buffer of lineCount lines.
// Columns past the end of a line are accepted; they are clamped when the
// selection text is cut.
func (r SelectionRange) Validate(lineCount int) error {
	switch {
	case r.StartLine < 1 || r.StartColumn < 1 || r.EndLine < 1 || r.EndColumn < 1:
		return NewInputError("selection %s: lines and columns start at 1", r)
	case r.StartLine > lineCount:
		return NewInputError("selection %s: buffer has %d lines", r, lineCount)
	case r.EndLine < r.StartLine || r.EndLine == r.StartLine && r.EndColumn < r.StartColumn:
		return NewInputError("selection %s: end is before start", r)
	}
	return nil
}
