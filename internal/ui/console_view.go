package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/console"
)

// handleConsoleKey routes keys while the G-code prompt has focus.
func (m Model) handleConsoleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.switchView(ViewDashboard)
	case tea.KeyEnter:
		m.submitPrompt()
		return m, nil
	case tea.KeyUp:
		m.recallHistory(1)
		return m, nil
	case tea.KeyDown:
		m.recallHistory(-1)
		return m, nil
	case tea.KeyCtrlL:
		if m.console != nil {
			m.console.Clear()
		}
		m.syncConsole(true)
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.PageUp):
		m.consoleView.HalfPageUp()
		m.consoleFollow = m.consoleView.AtBottom()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.consoleView.HalfPageDown()
		m.consoleFollow = m.consoleView.AtBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// submitPrompt sends the prompt contents and records them for recall.
func (m *Model) submitPrompt() {
	script := strings.TrimSpace(m.prompt.Value())
	m.prompt.Reset()
	m.historyIdx = -1
	if script == "" {
		return
	}
	if n := len(m.promptHistory); n == 0 || m.promptHistory[n-1] != script {
		m.promptHistory = append(m.promptHistory, script)
		if len(m.promptHistory) > PromptHistoryLimit {
			m.promptHistory = m.promptHistory[len(m.promptHistory)-PromptHistoryLimit:]
		}
	}
	if m.backend != nil {
		m.backend.SendGcode(script)
	}
	m.consoleFollow = true
}

// recallHistory walks the sent commands; dir 1 is older, -1 newer.
func (m *Model) recallHistory(dir int) {
	n := len(m.promptHistory)
	if n == 0 {
		return
	}
	idx := m.historyIdx + dir
	switch {
	case idx < 0:
		m.historyIdx = -1
		m.prompt.SetValue("")
		return
	case idx >= n:
		idx = n - 1
	}
	m.historyIdx = idx
	m.prompt.SetValue(m.promptHistory[n-1-idx])
	m.prompt.CursorEnd()
}

// syncConsole re-renders the console viewport when the buffer changed.
func (m *Model) syncConsole(force bool) {
	if m.console == nil || m.consoleView.Width == 0 {
		return
	}
	seq := m.console.Seq()
	if !force && seq == m.consoleSeq {
		return
	}
	m.consoleSeq = seq
	m.consoleView.SetContent(m.renderConsoleLines(m.console.Lines(0)))
	if m.consoleFollow {
		m.consoleView.GotoBottom()
	}
}

func (m Model) renderConsoleLines(lines []console.Line) string {
	if len(lines) == 0 {
		return m.theme.Styles().FaintText.Render("No G-code output yet.")
	}
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		stamp := bg.Render(line.Time.Format("15:04:05"), styles.FaintText)
		var text string
		switch line.Kind {
		case console.Command:
			text = bg.Render("> "+line.Text, styles.AccentText)
		case console.Error:
			text = bg.Render(line.Text, styles.DangerText)
		case console.Echo:
			text = bg.Render(line.Text, styles.InfoText)
		default:
			text = bg.Render(line.Text, styles.Text)
		}
		out = append(out, stamp+bg.Space()+text)
	}
	return strings.Join(out, "\n")
}

// renderConsole renders the console view: scrollback above the prompt.
func (m Model) renderConsole() string {
	height := m.contentHeight()
	title := "Console"
	if m.console != nil {
		title += " · " + strconv.Itoa(m.console.Len()) + " lines"
	}
	if !m.consoleFollow {
		title += " · scrolled"
	}
	prompt := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Text)).
		Render(m.prompt.View())
	content := m.consoleView.View() + "\n" + prompt
	return m.renderBox(title, content, m.width, height, true)
}
