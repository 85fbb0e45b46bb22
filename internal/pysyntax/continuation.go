package pysyntax

import "strings"

// Continuation tracks whether a logical line is still open after a physical
// line: an unclosed bracket, a pending triple-quoted string, or a trailing
// backslash. String literals and comments are skipped while counting brackets.
type Continuation struct {
	depth     int
	triple    string
	backslash bool
}

// Open reports whether the next physical line continues the current statement.
func (c *Continuation) Open() bool {
	return c.depth > 0 || c.triple != "" || c.backslash
}

// Feed advances the tracker over one physical line.
func (c *Continuation) Feed(line string) {
	c.feed(line)
}

// feed advances over line and returns the byte offset of a trailing comment,
// or -1 when the line has none.
func (c *Continuation) feed(line string) int {
	c.backslash = false
	i := 0
	for i < len(line) {
		if c.triple != "" {
			end := strings.Index(line[i:], c.triple)
			if end < 0 {
				return -1
			}
			i += end + 3
			c.triple = ""
			continue
		}

		ch := line[i]
		switch {
		case ch == '#':
			return i
		case ch == '"' || ch == '\'':
			if strings.HasPrefix(line[i:], strings.Repeat(string(ch), 3)) {
				c.triple = strings.Repeat(string(ch), 3)
				i += 3
				continue
			}
			i = skipString(line, i)
			continue
		case ch == '(' || ch == '[' || ch == '{':
			c.depth++
		case ch == ')' || ch == ']' || ch == '}':
			if c.depth > 0 {
				c.depth--
			}
		case ch == '\\' && i == len(line)-1:
			c.backslash = true
		}
		i++
	}
	return -1
}

// StripComments removes trailing comments from lines, leaving string
// literals (including multi-line triple-quoted ones) untouched. Trailing
// whitespace left behind by a removed comment is trimmed too.
func StripComments(lines []string) []string {
	var c Continuation
	out := make([]string, len(lines))
	for i, line := range lines {
		if at := c.feed(line); at >= 0 {
			line = strings.TrimRight(line[:at], " \t")
		}
		out[i] = line
	}
	return out
}

// StripLiterals removes trailing comments like StripComments and also blanks
// the contents of string literals, keeping their quotes, so pattern checks
// only see code. Line count and column positions outside comments are kept.
func StripLiterals(lines []string) []string {
	triple := ""
	out := make([]string, len(lines))
	for n, line := range lines {
		b := []byte(line)
		i := 0
	scan:
		for i < len(b) {
			if triple != "" {
				end := strings.Index(line[i:], triple)
				if end < 0 {
					blank(b, i, len(b))
					break
				}
				blank(b, i, i+end)
				i += end + 3
				triple = ""
				continue
			}

			switch ch := b[i]; {
			case ch == '#':
				b = b[:i]
				break scan
			case ch == '"' || ch == '\'':
				q := strings.Repeat(string(ch), 3)
				if strings.HasPrefix(line[i:], q) {
					triple = q
					i += 3
					continue
				}
				end := skipString(line, i)
				stop := end
				if end-1 > i && line[end-1] == ch {
					stop = end - 1
				}
				blank(b, i+1, stop)
				i = end
				continue
			}
			i++
		}
		out[n] = strings.TrimRight(string(b), " \t")
	}
	return out
}

func blank(b []byte, from, to int) {
	for i := from; i < to; i++ {
		b[i] = ' '
	}
}

// skipString returns the index just past the single-quoted string starting at i.
// An unterminated string runs to the end of the line.
func skipString(line string, i int) int {
	quote := line[i]
	for j := i + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(line)
}
