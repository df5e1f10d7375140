package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/notify"
)

func (m Model) levelTextStyle(level notify.Level, styles Styles) lipgloss.Style {
	switch level {
	case notify.Error:
		return styles.DangerText
	case notify.Warning:
		return styles.WarningText
	default:
		return styles.InfoText
	}
}

// syncNotifications re-renders the list when the center changed.
func (m *Model) syncNotifications(force bool) {
	if m.notes == nil || m.notesView.Width == 0 {
		return
	}
	seq := m.notes.Seq()
	if !force && seq == m.notesSeq {
		return
	}
	m.notesSeq = seq
	m.notesView.SetContent(m.renderNotificationList())
}

func (m Model) renderNotificationList() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	var lines []string

	if s, ok := m.notes.Standing(); ok {
		label, style := "CONNECTING", styles.WarningText
		if s.Fatal {
			label, style = "UNREACHABLE", styles.DangerText
		}
		line := bg.Render(label, style.Bold(true)) + bg.Space() +
			bg.Render(fmt.Sprintf("attempt %d since %s", s.Attempts, s.Since.Format("15:04:05")), styles.MutedText)
		lines = append(lines, line, bg.Spaces(2)+bg.Render(s.Message, styles.Text))
		if s.Fatal {
			lines = append(lines, bg.Spaces(2)+bg.Render("press r to try again", styles.FaintText))
		}
		lines = append(lines, "")
	}

	recent := m.notes.Recent(0)
	if len(recent) == 0 && len(lines) == 0 {
		return bg.Render("No notifications.", styles.FaintText)
	}
	for _, n := range recent {
		level := m.levelTextStyle(n.Level, styles)
		line := bg.Render(n.Time.Format("15:04:05"), styles.FaintText) + bg.Space() +
			bg.Render(padRight(strings.ToUpper(n.Level.String()), 7), level) + bg.Space() +
			bg.Render(n.Message, styles.Text)
		if n.Repeats > 0 {
			line += bg.Space() + bg.Render(fmt.Sprintf("×%d", n.Repeats+1), styles.MutedText)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderNotifications renders the notifications view.
func (m Model) renderNotifications() string {
	title := "Notifications"
	if m.notes != nil {
		title += fmt.Sprintf(" · %d", len(m.notes.Recent(0)))
	}
	return m.renderBox(title, m.notesView.View(), m.width, m.contentHeight(), true)
}

func (m Model) handleNotificationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.notes == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		if n, ok := m.notes.Latest(); ok {
			m.notes.Dismiss(n.ID)
		}
		m.syncNotifications(true)
	case key.Matches(msg, m.keys.ClearAll):
		m.notes.Clear()
		m.syncNotifications(true)
	case key.Matches(msg, m.keys.Down):
		m.notesView.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.notesView.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.notesView.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.notesView.GotoBottom()
	case key.Matches(msg, m.keys.PageDown):
		m.notesView.HalfPageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.notesView.HalfPageUp()
	}
	return m, nil
}
