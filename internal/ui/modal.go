package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// confirmModal asks before a destructive printer command.
type confirmModal struct {
	title   string
	body    string
	danger  bool
	confirm func()
}

func newConfirm(title, body string, danger bool, confirm func()) confirmModal {
	return confirmModal{title: title, body: body, danger: danger, confirm: confirm}
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Confirm):
		if c.confirm != nil {
			c.confirm()
		}
		return c, nil, true
	case key.Matches(km, keys.Deny), key.Matches(km, keys.Quit):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	border := theme.Accent
	titleStyle := styles.AccentText.Bold(true)
	if c.danger {
		border = theme.Danger
		titleStyle = styles.DangerText
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.body))
	b.WriteString("\n\n")
	b.WriteString(styles.WarningText.Render("y") + styles.MutedText.Render(" confirm   "))
	b.WriteString(styles.WarningText.Render("n") + styles.MutedText.Render(" cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(1, 2).
		Width(minInt(50, maxInt(width-4, 20))).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
