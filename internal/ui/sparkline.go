package ui

import "strings"

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the newest width values scaled between their minimum
// and maximum. Shorter series are left-padded with spaces.
func sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(values)))
	span := hi - lo
	top := len(sparkBlocks) - 1
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(top))
		}
		if idx > top {
			idx = top
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// progressBar renders frac (0..1) as a bar of width cells.
func progressBar(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	switch {
	case frac < 0:
		frac = 0
	case frac > 1:
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
