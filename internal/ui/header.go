package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/hotend/internal/moonraker"
	"github.com/five82/hotend/internal/notify"
	"github.com/five82/hotend/internal/printer"
)

// recentNotice is how long the newest notification stays in the header.
const recentNotice = 8 * time.Second

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	sep := bg.Spaces(2)

	parts := []string{bg.Render("hotend", styles.Logo)}
	parts = append(parts, m.connectionIndicator(styles, bg, compact))

	if m.conn == moonraker.Open {
		state := string(m.snapshot.State)
		parts = append(parts, styles.StatusStyle(state).Render(strings.ToUpper(state)))
		if host := m.snapshot.Info.Hostname; host != "" && !compact {
			parts = append(parts, bg.Render(host, styles.Text))
		}
		if v := m.snapshot.Info.SoftwareVersion; v != "" && m.width >= LayoutSideBySideWidth {
			parts = append(parts, bg.Render("klipper", styles.FaintText)+bg.Space()+bg.Render(truncate(v, 24), styles.MutedText))
		}
		if m.snapshot.Waiting {
			parts = append(parts, bg.Render("heating…", styles.WarningText))
		}
		if m.snapshot.State.Active() {
			parts = append(parts, bg.Render(fmt.Sprintf("%.0f%%", m.snapshot.Job.Progress*100), styles.AccentText))
		}
	}

	if notice := m.headerNotice(styles, bg, compact); notice != "" {
		parts = append(parts, notice)
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) connectionIndicator(styles Styles, bg BgStyle, compact bool) string {
	switch m.conn {
	case moonraker.Open:
		label := "● Moonraker"
		if !compact && m.config != nil {
			label += fmt.Sprintf(" %s:%d", m.config.Host, m.config.Port)
		}
		return bg.Render(label, styles.SuccessText)
	case moonraker.Connecting:
		return bg.Render("◌ Connecting", styles.WarningText.Bold(true))
	case moonraker.Closing:
		return bg.Render("◌ Closing", styles.MutedText)
	default:
		return bg.Render("○ Disconnected", styles.DangerText)
	}
}

// headerNotice shows the standing connection problem, or the newest
// notification while it is fresh.
func (m Model) headerNotice(styles Styles, bg BgStyle, compact bool) string {
	if m.notes == nil {
		return ""
	}
	limit := 80
	if compact {
		limit = 36
	}
	if s, ok := m.notes.Standing(); ok {
		if s.Fatal {
			return bg.Render("UNREACHABLE", styles.DangerText) + bg.Space() +
				bg.Render(truncate(s.Message, limit), styles.DangerText) + bg.Space() +
				bg.Render("(r to retry)", styles.FaintText)
		}
		return bg.Render(fmt.Sprintf("attempt %d", s.Attempts), styles.WarningText) + bg.Space() +
			bg.Render(truncate(s.Message, limit), styles.MutedText)
	}
	n, ok := m.notes.Latest()
	if !ok || time.Since(n.Time) > recentNotice {
		return ""
	}
	style := styles.InfoText
	switch n.Level {
	case notify.Error:
		style = styles.DangerText
	case notify.Warning:
		style = styles.WarningText
	}
	return bg.Render(truncate(n.Message, limit), style)
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewConsole:
		commands = []cmd{
			{"enter", "Send"},
			{"↑/↓", "History"},
			{"pgup/pgdn", "Scroll"},
			{"ctrl+l", "Clear"},
			{"esc", "Dashboard"},
			{"tab", "Next view"},
		}
	case ViewNotifications:
		commands = []cmd{
			{"x", "Dismiss"},
			{"C", "Clear"},
			{"j/k", "Scroll"},
			{"r", "Reconnect"},
			{"d", "Dashboard"},
			{"?", "More"},
		}
	case ViewLogs:
		follow := "Pause"
		if !m.logState.follow {
			follow = "Follow"
		}
		commands = []cmd{
			{"space", follow},
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"d", "Dashboard"},
			{"?", "More"},
		}
	default:
		pause := "Pause"
		if m.snapshot.State == printer.StatePaused {
			pause = "Resume"
		}
		spark := "Sparklines"
		if m.prefs.Sparklines {
			spark = "Hide sparklines"
		}
		commands = []cmd{
			{"p", pause},
			{"X", "Cancel"},
			{"!", "E-stop"},
			{"o", "Power"},
			{"s", spark},
			{"c", "Console"},
			{"n", "Notices"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
