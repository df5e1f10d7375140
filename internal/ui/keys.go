package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewDashboard     key.Binding
	ViewConsole       key.Binding
	ViewNotifications key.Binding
	ViewLogs          key.Binding

	// Printer actions
	PauseResume     key.Binding
	CancelPrint     key.Binding
	EmergencyStop   key.Binding
	FirmwareRestart key.Binding
	Reconnect       key.Binding
	TogglePower     key.Binding
	Sparklines      key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Lists
	ToggleFollow key.Binding
	Dismiss      key.Binding
	ClearAll     key.Binding

	// Prompt and dialogs
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to dashboard"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("d", "1"),
			key.WithHelp("d", "Dashboard"),
		),
		ViewConsole: key.NewBinding(
			key.WithKeys("c", ":", "2"),
			key.WithHelp("c", "Console"),
		),
		ViewNotifications: key.NewBinding(
			key.WithKeys("n", "3"),
			key.WithHelp("n", "Notifications"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l", "4"),
			key.WithHelp("l", "Logs"),
		),

		PauseResume: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Pause/resume print"),
		),
		CancelPrint: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Cancel print"),
		),
		EmergencyStop: key.NewBinding(
			key.WithKeys("!"),
			key.WithHelp("!", "Emergency stop"),
		),
		FirmwareRestart: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Firmware restart"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reconnect"),
		),
		TogglePower: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Toggle power device"),
		),
		Sparklines: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle sparklines"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "Up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "Down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "Page down"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle follow"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Dismiss newest"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear all"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter", "y"),
			key.WithHelp("y", "Confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("esc", "n"),
			key.WithHelp("n", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings grouped as the help overlay shows them.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDashboard, k.ViewConsole, k.ViewNotifications, k.ViewLogs, k.Escape},
		{k.PauseResume, k.CancelPrint, k.EmergencyStop, k.FirmwareRestart, k.Reconnect},
		{k.Up, k.Down, k.TogglePower, k.Sparklines},
		{k.ToggleFollow, k.Dismiss, k.ClearAll, k.PageUp, k.PageDown},
		{k.CycleTheme, k.Help, k.Quit},
	}
}

var helpTitles = []string{"Views", "Printer", "Dashboard", "Lists", "General"}
