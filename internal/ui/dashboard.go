package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/printer"
)

const (
	colName   = 16
	colTemp   = 9
	colPower  = 6
	jobHeight = 9
)

// renderDashboard lays out temperatures, job, toolhead, fans and power.
func (m Model) renderDashboard() string {
	height := m.contentHeight()
	width := m.width

	tempHeight := len(m.snapshot.Readings) + 3
	if tempHeight < 5 {
		tempHeight = 5
	}
	lowerHeight := maxInt(len(m.snapshot.Fans), len(m.snapshot.Power)) + 2
	if lowerHeight < 4 {
		lowerHeight = 4
	}

	var top string
	if width >= LayoutSideBySideWidth {
		left := width * 3 / 5
		right := width - left
		h := maxInt(tempHeight, jobHeight)
		top = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderBox("Temperatures", m.renderTemperatures(left-2), left, h, false),
			m.renderBox("Job", m.renderJob(right-2), right, h, false),
		)
	} else {
		top = lipgloss.JoinVertical(lipgloss.Left,
			m.renderBox("Temperatures", m.renderTemperatures(width-2), width, tempHeight, false),
			m.renderBox("Job", m.renderJob(width-2), width, jobHeight, false),
		)
	}

	half := width / 2
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderBox("Fans", m.renderFans(half-2), half, lowerHeight, false),
		m.renderBox("Power", m.renderPower(width-half-2), width-half, lowerHeight, true),
	)

	return lipgloss.NewStyle().MaxHeight(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, top, bottom),
	)
}

func (m Model) renderTemperatures(width int) string {
	styles := m.theme.Styles()
	if len(m.snapshot.Readings) == 0 {
		msg := "Waiting for Klipper..."
		if m.snapshot.State == printer.StateReady || m.snapshot.State.Active() {
			msg = "No temperature devices configured."
		}
		return styles.FaintText.Render(msg)
	}

	sparkWidth := width - colName - colTemp*2 - colPower - 4
	showSpark := m.prefs.Sparklines && sparkWidth >= 8

	header := padRight("Device", colName) + padLeft("Current", colTemp) +
		padLeft("Target", colTemp) + padLeft("Power", colPower)
	if showSpark {
		header += "  History"
	}
	lines := []string{styles.MutedText.Render(header)}

	for _, r := range m.snapshot.Readings {
		name := padRight(truncate(displayName(r.Name), colName-1), colName)
		current := lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.HeatColor(r.Temperature))).
			Render(padLeft(formatTemp(r.Temperature), colTemp))

		target := padLeft("-", colTemp)
		if r.HasTarget {
			if r.Target > 0 {
				target = padLeft(formatTemp(r.Target), colTemp)
			} else {
				target = padLeft("off", colTemp)
			}
		}
		power := padLeft("", colPower)
		switch {
		case r.HasPower:
			power = padLeft(fmt.Sprintf("%.0f%%", r.Power*100), colPower)
		case r.Speed > 0:
			power = padLeft(fmt.Sprintf("%.0f%%", r.Speed*100), colPower)
		}

		line := styles.Text.Render(name) + current + styles.Text.Render(target) + styles.MutedText.Render(power)
		if showSpark && m.backend != nil {
			series, _ := m.backend.History(r.Name, "temperatures", sparkWidth)
			line += "  " + styles.AccentText.Render(sparkline(series, sparkWidth))
		}
		lines = append(lines, line)
	}
	if m.snapshot.Waiting {
		lines = append(lines, styles.WarningText.Render("Waiting for heaters to reach target..."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderJob(width int) string {
	styles := m.theme.Styles()
	job := m.snapshot.Job
	state := string(m.snapshot.State)

	lines := []string{
		styles.StatusStyle(state).Render(strings.ToUpper(state)),
	}
	if !m.snapshot.State.Active() && job.Filename == "" {
		lines = append(lines, styles.FaintText.Render("No active print."))
		return strings.Join(append(lines, m.renderToolhead()), "\n")
	}

	lines = append(lines, styles.Text.Bold(true).Render(truncateMiddle(job.Filename, width)))

	barWidth := maxInt(width-7, 5)
	pct := fmt.Sprintf(" %3.0f%%", job.Progress*100)
	lines = append(lines, styles.AccentText.Render(progressBar(job.Progress, barWidth))+styles.Text.Render(pct))

	timing := "Elapsed " + formatSeconds(job.PrintDuration)
	if job.Progress > 0.01 && job.PrintDuration > 0 {
		total := job.PrintDuration / job.Progress
		timing += "  Left " + formatSeconds(total-job.PrintDuration)
	}
	lines = append(lines, styles.MutedText.Render(timing))
	lines = append(lines, styles.MutedText.Render("Filament "+formatFilament(job.FilamentUsed)))
	if job.Message != "" {
		lines = append(lines, styles.WarningText.Render(truncate(job.Message, width)))
	}
	lines = append(lines, m.renderToolhead())
	return strings.Join(lines, "\n")
}

func (m Model) renderToolhead() string {
	styles := m.theme.Styles()
	axes := []string{"x", "y", "z"}
	var parts []string
	for i, axis := range axes {
		style := styles.FaintText
		if strings.Contains(m.snapshot.HomedAxes, axis) {
			style = styles.SuccessText
		}
		label := strings.ToUpper(axis)
		if i < len(m.snapshot.Position) {
			label += fmt.Sprintf(" %.2f", m.snapshot.Position[i])
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderFans(width int) string {
	styles := m.theme.Styles()
	if len(m.snapshot.Fans) == 0 {
		return styles.FaintText.Render("No fans.")
	}
	nameWidth := minInt(colName, width/2)
	barWidth := maxInt(width-nameWidth-6, 3)
	lines := make([]string, 0, len(m.snapshot.Fans))
	for _, f := range m.snapshot.Fans {
		lines = append(lines,
			styles.Text.Render(padRight(truncate(displayName(f.Name), nameWidth-1), nameWidth))+
				styles.InfoText.Render(progressBar(f.Speed, barWidth))+
				styles.MutedText.Render(padLeft(fmt.Sprintf("%.0f%%", f.Speed*100), 5)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPower(width int) string {
	styles := m.theme.Styles()
	if len(m.snapshot.Power) == 0 {
		return styles.FaintText.Render("No power devices.")
	}
	lines := make([]string, 0, len(m.snapshot.Power))
	for i, d := range m.snapshot.Power {
		name := padRight(truncate(d.Device, width-8), width-7)
		row := styles.Text.Render(name)
		if i == m.selectedPower {
			row = styles.Selected.Render(name)
		}
		lines = append(lines, row+" "+styles.StatusStyle(d.Status).Render(strings.ToUpper(d.Status)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedPower > 0 {
			m.selectedPower--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedPower < len(m.snapshot.Power)-1 {
			m.selectedPower++
		}
	case key.Matches(msg, m.keys.TogglePower):
		m.togglePower()
	case key.Matches(msg, m.keys.Sparklines):
		m.prefs.Sparklines = !m.prefs.Sparklines
		m.savePrefs()
	}
	return m, nil
}

// togglePower flips the selected device, asking first while a print is
// loaded.
func (m *Model) togglePower() {
	if m.selectedPower >= len(m.snapshot.Power) || m.backend == nil {
		return
	}
	dev := m.snapshot.Power[m.selectedPower]
	backend := m.backend
	if m.snapshot.State.Active() {
		m.modal = newConfirm("Power "+dev.Device,
			fmt.Sprintf("A print is loaded. Turn %s %s anyway?", dev.Device, oppositePower(dev.Status)),
			true, func() { backend.TogglePower(dev.Device) })
		return
	}
	backend.TogglePower(dev.Device)
}

func oppositePower(status string) string {
	if status == "on" {
		return "off"
	}
	return "on"
}
