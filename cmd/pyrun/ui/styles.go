// Package ui holds the terminal presentation of the pyrun CLI: colors, the
// interactive function chooser and the script preview.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode
	LightForeground = lipgloss.Color("#101F38")
	LightPrimary    = lipgloss.Color("#101F38")
	LightAccent     = lipgloss.Color("#3776AB") // Python blue
	LightMuted      = lipgloss.Color("#6b7280")

	// Dark mode
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#FFD43B") // Python yellow
	DarkAccent     = lipgloss.Color("#4B8BBE")
	DarkMuted      = lipgloss.Color("#9ca3af")

	// Semantic colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from COLORFGBG or PYRUN_DARK_MODE, defaulting to light.
func DetectTheme() Theme {
	if os.Getenv("PYRUN_DARK_MODE") == "1" {
		return DarkTheme()
	}
	// Format is usually "foreground;background"; 0-6 and 8 are dark backgrounds.
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	return LightTheme()
}

// Styles holds the styled components used by the CLI.
type Styles struct {
	Theme Theme
	Plain bool

	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Stderr  lipgloss.Style
}

// NewStyles creates a Styles instance for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Stderr: lipgloss.NewStyle().
			Foreground(Destructive),
	}
}

// PlainStyles renders everything unstyled, for --no-color and pipes.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{
		Theme:   LightTheme(),
		Plain:   true,
		Title:   s,
		Label:   s,
		Muted:   s,
		Bold:    s,
		Success: s,
		Error:   s,
		Warning: s,
		Info:    s,
		Stderr:  s,
	}
}

// DefaultStyles returns PlainStyles when noColor is set or NO_COLOR is
// present, and themed styles otherwise.
func DefaultStyles(noColor bool) Styles {
	if _, ok := os.LookupEnv("NO_COLOR"); noColor || ok {
		return PlainStyles()
	}
	return NewStyles(DetectTheme())
}
