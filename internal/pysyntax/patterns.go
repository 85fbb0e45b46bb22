// Package pysyntax holds the line-level Python patterns shared by the context
// extractor, the selection classifier and the function catalog.
//
// Everything here is deliberately heuristic: a line is matched against a
// handful of regular expressions and never parsed against the full grammar.
package pysyntax

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	importRe      = regexp.MustCompile(`^\s*(import\s+[A-Za-z_.]|from\s+[A-Za-z_.][\w.]*\s+import\s)`)
	classRe       = regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`)
	defRe         = regexp.MustCompile(`^\s*(async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	topLevelDefRe = regexp.MustCompile(`^def\s+([A-Za-z_]\w*)\s*\(`)
	globalRe      = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(:[^=]+)?=([^=]|$)`)
	assignOpRe    = regexp.MustCompile(`(^|[^=!<>])=([^=]|$)`)
	printCallRe   = regexp.MustCompile(`\bprint\s*\(`)
	forIfRe       = regexp.MustCompile(`\b(for|if)\b`)
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Python keywords that cannot be used as module or function names.
var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// statementKeywords open a line that can never be evaluated as an expression.
var statementKeywords = []string{
	"import", "from", "return", "while", "with", "try", "raise", "del",
	"pass", "assert", "break", "continue", "global", "nonlocal", "yield",
	"elif", "else", "except", "finally", "async", "class", "def",
}

// IsBlank reports whether the line holds only whitespace.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// IsComment reports whether the first non-whitespace character is '#'.
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// Indent returns the width of the leading whitespace. A tab counts as one column.
func Indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// HasLeadingWhitespace reports whether the line starts with a space or a tab.
func HasLeadingWhitespace(line string) bool {
	return Indent(line) > 0
}

// IsImport matches `import X` and `from X import Y` at any indentation.
func IsImport(line string) bool {
	return importRe.MatchString(line)
}

// ClassHeader returns the class name when the line opens a class.
func ClassHeader(line string) (string, bool) {
	m := classRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DefHeader returns the function name when the line opens a function at any
// indentation. async reports an `async def` header.
func DefHeader(line string) (name string, async bool, ok bool) {
	m := defRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, false
	}
	return m[2], m[1] != "", true
}

// TopLevelDef returns the function name of a column-zero, non-async `def NAME(` header.
func TopLevelDef(line string) (string, bool) {
	m := topLevelDefRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsGlobalAssignment matches `name = ...` and `name: T = ...` with no leading
// whitespace. One-line compound statements such as `else: x = 1` are rejected.
func IsGlobalAssignment(line string) bool {
	m := globalRe.FindStringSubmatch(line)
	return m != nil && !keywords[m[1]]
}

// HasAssignOp reports whether text contains a lone `=` (plain, augmented or
// walrus). Comparisons `==`, `!=`, `<=` and `>=` do not count.
func HasAssignOp(text string) bool {
	return assignOpRe.MatchString(text)
}

// HasPrintCall reports whether text calls print.
func HasPrintCall(text string) bool {
	return printCallRe.MatchString(text)
}

// HasForOrIf reports whether text contains the for or if keyword.
func HasForOrIf(text string) bool {
	return forIfRe.MatchString(text)
}

// StartsWithStatementKeyword reports whether the trimmed line opens with a
// keyword that introduces a statement, or with a decorator.
func StartsWithStatementKeyword(line string) bool {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, "@") {
		return true
	}
	for _, kw := range statementKeywords {
		if t == kw || strings.HasPrefix(t, kw) && !isIdentChar(t[len(kw)]) {
			return true
		}
	}
	return false
}

// IsDecorator reports whether the trimmed line starts with '@'.
func IsDecorator(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "@")
}

// CallsFunction reports whether text calls name anywhere other than in a
// def header for name.
func CallsFunction(text, name string) bool {
	callRe := regexp.MustCompile(`(^|[^\w.])` + regexp.QuoteMeta(name) + `\s*\(`)
	for _, line := range strings.Split(text, "\n") {
		if n, _, ok := DefHeader(line); ok && n == name {
			line = defRe.ReplaceAllString(line, "")
		}
		if callRe.MatchString(line) {
			return true
		}
	}
	return false
}

// IsIdentifier reports whether s is a usable Python name (ASCII subset, not a keyword).
func IsIdentifier(s string) bool {
	return identRe.MatchString(s) && !keywords[s]
}

// Quote renders s as a double-quoted Python string literal. Go's escape
// sequences are a subset of the ones Python accepts.
func Quote(s string) string {
	return strconv.Quote(s)
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
