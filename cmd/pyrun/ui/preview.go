package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderScript renders a synthesized script as a highlighted Python block.
// Plain styles return the text unchanged so it can be piped to a file.
func RenderScript(text string, width int, styles Styles) (string, error) {
	if styles.Plain {
		return text, nil
	}
	if width <= 0 {
		width = 80
	}

	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	var md strings.Builder
	md.WriteString("```python\n")
	md.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		md.WriteString("\n")
	}
	md.WriteString("```\n")

	out, err := r.Render(md.String())
	if err != nil {
		return "", fmt.Errorf("render script: %w", err)
	}
	return out, nil
}
