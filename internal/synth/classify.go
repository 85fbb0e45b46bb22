package synth

import (
	"strings"

	"pyrun/internal/pysyntax"
	"pyrun/internal/types"
)

// IsAllIndented reports whether every non-blank line of text starts with
// whitespace. Text with no non-blank lines is not indented.
func IsAllIndented(text string) bool {
	seen := false
	for _, line := range splitLines(text) {
		if pysyntax.IsBlank(line) {
			continue
		}
		if !pysyntax.HasLeadingWhitespace(line) {
			return false
		}
		seen = true
	}
	return seen
}

// Classify decides how a selected fragment becomes a script.
//
// An all-indented fragment is an IndentedFragment. Otherwise the first
// non-blank line decides, with leading decorator lines skipped when looking
// for a def or class header. A fragment that is neither a definition nor a
// single bare expression is a Statement.
func Classify(text string) types.Classification {
	if IsAllIndented(text) {
		return types.Classification{Kind: types.KindIndentedFragment}
	}

	lines := splitLines(text)
	if header, ok := firstHeaderLine(lines); ok {
		if name, async, ok := pysyntax.DefHeader(header); ok {
			return types.Classification{Kind: types.KindFunctionDef, Name: name, Async: async}
		}
		if _, ok := pysyntax.ClassHeader(header); ok {
			return types.Classification{Kind: types.KindClassDef}
		}
	}

	if isExpression(lines) {
		return types.Classification{Kind: types.KindExpression}
	}
	return types.Classification{Kind: types.KindStatement}
}

// firstHeaderLine returns the first non-blank line that is not a decorator.
func firstHeaderLine(lines []string) (string, bool) {
	for _, line := range lines {
		if pysyntax.IsBlank(line) || pysyntax.IsDecorator(line) {
			continue
		}
		return line, true
	}
	return "", false
}

// isExpression holds when lines form one logical line whose value can be
// printed: no assignment, no for/if, no print call, no statement keyword.
func isExpression(lines []string) bool {
	first := ""
	for _, line := range lines {
		if !pysyntax.IsBlank(line) {
			first = line
			break
		}
	}
	code := strings.Join(pysyntax.StripLiterals(lines), "\n")

	switch {
	case first == "" || pysyntax.IsComment(first):
		return false
	case pysyntax.StartsWithStatementKeyword(first):
		return false
	case pysyntax.HasAssignOp(code), pysyntax.HasForOrIf(code), pysyntax.HasPrintCall(code):
		return false
	case strings.Contains(code, ";"):
		return false
	}
	return logicalLineCount(lines) == 1
}

// logicalLineCount counts statements in lines, joining physical lines that
// continue an open bracket, string or backslash.
func logicalLineCount(lines []string) int {
	var c pysyntax.Continuation
	count := 0
	inStatement := false
	for _, line := range lines {
		if !inStatement {
			if pysyntax.IsBlank(line) || pysyntax.IsComment(line) {
				continue
			}
			count++
		}
		c.Feed(line)
		inStatement = c.Open()
	}
	return count
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
