package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// choiceItem adapts a chooser option to list.Item.
type choiceItem string

func (i choiceItem) Title() string       { return string(i) }
func (i choiceItem) Description() string { return "" }
func (i choiceItem) FilterValue() string { return string(i) }

type chooserModel struct {
	list     list.Model
	choice   string
	chosen   bool
	quitting bool
}

func newChooserModel(options []string, prompt string, styles Styles) chooserModel {
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = choiceItem(o)
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	if !styles.Plain {
		delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
			Foreground(styles.Theme.Accent).
			BorderForeground(styles.Theme.Accent)
	}

	height := len(options) + 10
	if height > 24 {
		height = 24
	}
	l := list.New(items, delegate, 60, height)
	l.Title = prompt
	l.SetShowStatusBar(false)
	if !styles.Plain {
		l.Styles.Title = styles.Title
	}
	return chooserModel{list: l}
}

func (m chooserModel) Init() tea.Cmd { return nil }

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, min(msg.Height, len(m.list.Items())+10))
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc", "q":
			if m.list.FilterState() == list.Unfiltered {
				m.quitting = true
				return m, tea.Quit
			}
		case "enter":
			if sel, ok := m.list.SelectedItem().(choiceItem); ok {
				m.choice = string(sel)
				m.chosen = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m chooserModel) View() string {
	if m.chosen || m.quitting {
		return ""
	}
	return m.list.View()
}

// TerminalChooser asks the user to pick a function in a bubbletea list.
// Escape, q and ctrl+c cancel; "/" filters.
type TerminalChooser struct {
	Styles Styles

	// Input and Output default to the process terminal when nil.
	Input  io.Reader
	Output io.Writer

	// UseTTY reads keys from the controlling terminal, for when stdin
	// carries the buffer.
	UseTTY bool
}

// Choose runs the list until the user picks or cancels.
func (c TerminalChooser) Choose(ctx context.Context, options []string, prompt string) (string, bool, error) {
	if len(options) == 0 {
		return "", false, fmt.Errorf("no options to choose from")
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	switch {
	case c.UseTTY:
		opts = append(opts, tea.WithInputTTY())
	case c.Input != nil:
		opts = append(opts, tea.WithInput(c.Input))
	}
	if c.Output != nil {
		opts = append(opts, tea.WithOutput(c.Output))
	}

	final, err := tea.NewProgram(newChooserModel(options, prompt, c.Styles), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, fmt.Errorf("chooser: %w", err)
	}

	m, ok := final.(chooserModel)
	if !ok || !m.chosen {
		return "", false, nil
	}
	return m.choice, true, nil
}
