package buffer

import (
	"math"
	"strconv"
	"strings"

	"pyrun/internal/types"
)

// EndOfLine is the column editors report for "through the end of the line".
const EndOfLine = math.MaxInt32

// ParseRange parses a selection written as "L:C-L:C", "L-L" (whole lines)
// or "L" (one whole line).
func ParseRange(s string) (types.SelectionRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.SelectionRange{}, types.NewInputError("empty selection range")
	}

	startText, endText, hasEnd := strings.Cut(s, "-")
	if !hasEnd {
		endText = startText
	}

	startLine, startCol, err := parsePosition(startText, 1)
	if err != nil {
		return types.SelectionRange{}, types.NewInputError("invalid selection range %q: %v", s, err)
	}
	endLine, endCol, err := parsePosition(endText, EndOfLine)
	if err != nil {
		return types.SelectionRange{}, types.NewInputError("invalid selection range %q: %v", s, err)
	}

	return types.SelectionRange{
		StartLine:   startLine,
		StartColumn: startCol,
		EndLine:     endLine,
		EndColumn:   endCol,
	}, nil
}

// parsePosition parses "L" or "L:C"; a bare line takes defaultCol.
func parsePosition(s string, defaultCol int) (line, col int, err error) {
	lineText, colText, hasCol := strings.Cut(strings.TrimSpace(s), ":")
	if line, err = strconv.Atoi(lineText); err != nil {
		return 0, 0, err
	}
	if !hasCol {
		return line, defaultCol, nil
	}
	if col, err = strconv.Atoi(colText); err != nil {
		return 0, 0, err
	}
	return line, col, nil
}

// SelectionText cuts the selected text out of lines. The first and last lines
// are clipped to the column bounds; interior lines are kept verbatim. Columns
// beyond a line's end and an end line beyond the buffer are clamped.
func SelectionText(lines []string, rng types.SelectionRange) (string, error) {
	if err := rng.Validate(len(lines)); err != nil {
		return "", err
	}
	if rng.EndLine > len(lines) {
		rng.EndLine = len(lines)
		rng.EndColumn = EndOfLine
	}

	if rng.StartLine == rng.EndLine {
		return clip(lines[rng.StartLine-1], rng.StartColumn, rng.EndColumn), nil
	}

	out := make([]string, 0, rng.EndLine-rng.StartLine+1)
	out = append(out, clip(lines[rng.StartLine-1], rng.StartColumn, EndOfLine))
	out = append(out, lines[rng.StartLine:rng.EndLine-1]...)
	out = append(out, clip(lines[rng.EndLine-1], 1, rng.EndColumn))
	return strings.Join(out, "\n"), nil
}

// clip returns runes from..to (1-indexed, inclusive) of line.
func clip(line string, from, to int) string {
	runes := []rune(line)
	if from > len(runes) {
		return ""
	}
	if to > len(runes) {
		to = len(runes)
	}
	if to < from {
		return ""
	}
	return string(runes[from-1 : to])
}
