package ui

import (
	"fmt"
	"strings"
	"time"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle shortens a string by removing characters from the middle,
// keeping the start and the file extension of paths.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	ellipsis := []rune("…")
	if limit <= 3 {
		return string(runes[:limit])
	}

	if dot := strings.LastIndex(value, "."); dot > strings.LastIndex(value, "/") && dot > 0 {
		ext := []rune(value[dot:])
		base := []rune(value[:dot])
		if len(ext) < 10 && len(ext) < limit/2 {
			keep := limit - len(ext) - len(ellipsis)
			if keep > 0 && len(base) > keep {
				prefix := keep / 2
				suffix := keep - prefix
				return string(base[:prefix]) + string(ellipsis) + string(base[len(base)-suffix:]) + string(ext)
			}
		}
	}

	keep := limit - len(ellipsis)
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + string(ellipsis) + string(runes[len(runes)-suffix:])
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}

// padLeft right-aligns s in width columns.
func padLeft(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(r)) + s
}

// formatSeconds renders a Klipper duration in seconds compactly: 45s, 3m20s,
// 1h02m.
func formatSeconds(seconds float64) string {
	if seconds < 1 {
		return "0s"
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// formatTemp renders a temperature with one decimal.
func formatTemp(celsius float64) string {
	return fmt.Sprintf("%.1f°", celsius)
}

// formatFilament renders millimetres of filament as metres past 1000mm.
func formatFilament(mm float64) string {
	if mm >= 1000 {
		return fmt.Sprintf("%.2fm", mm/1000)
	}
	return fmt.Sprintf("%.0fmm", mm)
}

// displayName drops the Klipper section prefix: "temperature_sensor chamber"
// becomes "chamber".
func displayName(section string) string {
	if i := strings.LastIndex(section, " "); i >= 0 {
		return section[i+1:]
	}
	return section
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
