package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderBox draws content inside a rounded border with the title set into
// the top edge. width and height include the border.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	if width < 4 || height < 2 {
		return ""
	}
	borderColor := m.theme.Border
	bgColor := m.theme.Background
	if focused {
		borderColor = m.theme.BorderFocus
		bgColor = m.theme.FocusBg
	}
	border := lipgloss.RoundedBorder()
	edge := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent)).Bold(true)

	innerWidth := width - 2
	label := ""
	if title != "" {
		label = " " + truncate(title, innerWidth-4) + " "
	}
	fill := maxInt(innerWidth-1-lipgloss.Width(label), 0)
	top := edge.Render(border.TopLeft+border.Top) + titleStyle.Render(label) +
		edge.Render(strings.Repeat(border.Top, fill)+border.TopRight)

	body := lipgloss.NewStyle().
		Background(lipgloss.Color(bgColor)).
		Width(innerWidth).
		Height(height - 2).
		MaxHeight(height - 2).
		MaxWidth(innerWidth).
		Render(content)

	lines := strings.Split(body, "\n")
	var b strings.Builder
	b.WriteString(top)
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(edge.Render(border.Left))
		b.WriteString(line)
		b.WriteString(edge.Render(border.Right))
	}
	b.WriteString("\n")
	b.WriteString(edge.Render(border.BottomLeft + strings.Repeat(border.Bottom, innerWidth) + border.BottomRight))
	return b.String()
}

// contentHeight is the height available below the header and command bar.
func (m Model) contentHeight() int {
	return maxInt(m.height-2, 2)
}
