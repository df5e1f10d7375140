package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Nightfox" || names[1] != "Kanagawa" || names[2] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Nightfox Kanagawa Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	cases := map[string]string{
		"Nightfox": "Kanagawa",
		"Kanagawa": "Slate",
		"Slate":    "Nightfox",
		"Unknown":  "Nightfox",
	}
	for in, want := range cases {
		if got := NextTheme(in); got != want {
			t.Fatalf("NextTheme(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestGetThemeFallsBack(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("Dracula").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Dracula).Name = %q, want Nightfox (fallback)", got)
	}
}

func TestThemesCoverMachineStates(t *testing.T) {
	states := []string{"disconnected", "startup", "ready", "printing", "paused", "interrupt", "shutdown", "error", "on", "off"}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, s := range states {
			if th.StatusColors[s] == "" {
				t.Fatalf("theme %s has no color for %q", name, s)
			}
		}
	}
}

func TestHeatColor(t *testing.T) {
	th := GetTheme("Nightfox")
	if got := th.HeatColor(20); got != th.Heat[0] {
		t.Fatalf("HeatColor(20) = %q, want coolest %q", got, th.Heat[0])
	}
	if got := th.HeatColor(300); got != th.Heat[len(th.Heat)-1] {
		t.Fatalf("HeatColor(300) = %q, want hottest %q", got, th.Heat[len(th.Heat)-1])
	}
	if got := th.HeatColor(150); got == th.Heat[0] || got == th.Heat[len(th.Heat)-1] {
		t.Fatalf("HeatColor(150) = %q, want a middle color", got)
	}
	if got := (Theme{Text: "#fff"}).HeatColor(200); got != "#fff" {
		t.Fatalf("HeatColor without gradient = %q, want text color", got)
	}
}

func TestWithBackgroundKeepsStatusFallback(t *testing.T) {
	th := GetTheme("Nightfox")
	styles := th.Styles().WithBackground(th.Surface)
	if styles.muted != th.Muted {
		t.Fatalf("muted = %q, want %q", styles.muted, th.Muted)
	}
	if styles.statusColors["ready"] != th.StatusColors["ready"] {
		t.Fatalf("status colors lost by WithBackground")
	}
}
