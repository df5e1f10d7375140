package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/logtail"
)

// logState holds the tail of hotend's own log file.
type logState struct {
	lines       []string
	follow      bool
	lastRefresh time.Time
	err         error
	path        string
}

type logLinesMsg struct {
	path  string
	lines []string
	err   error
}

func (m Model) logPath() string {
	if m.config == nil {
		return ""
	}
	return m.config.LogPath()
}

// refreshLogs reads the log tail off the UI goroutine.
func (m *Model) refreshLogs() tea.Cmd {
	path := m.logPath()
	if path == "" {
		return nil
	}
	m.logState.lastRefresh = time.Now()
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{path: path, lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.path = msg.path
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.lines = msg.lines
	}
	m.updateLogViewport()
}

// updateLogViewport re-renders the log content and keeps the tail in view
// while following.
func (m *Model) updateLogViewport() {
	if m.logView.Width == 0 {
		return
	}
	m.logView.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logView.GotoBottom()
	}
}

func (m *Model) renderLogContent() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	if m.logState.err != nil {
		return bg.Render("Cannot read log: "+m.logState.err.Error(), styles.DangerText)
	}
	if len(m.logState.lines) == 0 {
		return bg.Render("Log is empty.", styles.FaintText)
	}
	out := make([]string, 0, len(m.logState.lines))
	for _, raw := range m.logState.lines {
		out = append(out, m.colorizeLogLine(raw, styles, bg))
	}
	return strings.Join(out, "\n")
}

func (m *Model) colorizeLogLine(raw string, styles Styles, bg BgStyle) string {
	entry := logtail.Parse(raw)
	if entry.Level == "" && entry.Time.IsZero() {
		return bg.Render(raw, styles.MutedText)
	}
	var parts []string
	if !entry.Time.IsZero() {
		parts = append(parts, bg.Render(entry.Time.Local().Format(time.TimeOnly), styles.FaintText))
	}
	parts = append(parts, bg.Render(padRight(strings.ToUpper(entry.Level), 5), m.levelStyle(entry.Level, styles)))
	if entry.Component != "" {
		parts = append(parts, bg.Render("["+entry.Component+"]", styles.AccentText))
	}
	parts = append(parts, bg.Render(entry.Message, styles.Text))
	if entry.Error != "" {
		parts = append(parts, bg.Render("error="+entry.Error, styles.DangerText))
	}
	for _, f := range entry.Fields {
		parts = append(parts, bg.Render(f, styles.MutedText))
	}
	return strings.Join(parts, bg.Space())
}

func (m *Model) levelStyle(level string, styles Styles) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		return styles.DangerText
	case "warn":
		return styles.WarningText
	case "debug", "trace":
		return styles.FaintText
	default:
		return styles.InfoText
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)

	title := "Log"
	if path := m.logPath(); path != "" {
		title += " · " + truncateMiddle(path, maxInt(m.width/2, 20))
	}

	follow := bg.Render("following", styles.SuccessText)
	if !m.logState.follow {
		follow = bg.Render("paused", styles.WarningText)
	}
	status := follow + bg.Spaces(2) + bg.Render(fmt.Sprintf("%.0f%%", m.logView.ScrollPercent()*100), styles.MutedText)
	content := m.logView.View() + "\n" + bg.FillLine(status, m.logView.Width)
	return m.renderBox(title, content, m.width, m.contentHeight(), true)
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logView.GotoBottom()
			return m, m.refreshLogs()
		}
	case key.Matches(msg, m.keys.Top):
		m.logView.GotoTop()
		m.logState.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logView.GotoBottom()
		m.logState.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logView.ScrollDown(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logView.ScrollUp(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.PageDown):
		m.logView.HalfPageDown()
		m.logState.follow = false
	case key.Matches(msg, m.keys.PageUp):
		m.logView.HalfPageUp()
		m.logState.follow = false
	}
	return m, nil
}
