package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/hotend/internal/config"
	"github.com/five82/hotend/internal/console"
	"github.com/five82/hotend/internal/moonraker"
	"github.com/five82/hotend/internal/notify"
	"github.com/five82/hotend/internal/prefs"
	"github.com/five82/hotend/internal/printer"
)

// View represents the current active view.
type View int

const (
	ViewDashboard View = iota
	ViewConsole
	ViewNotifications
	ViewLogs
)

var viewNames = []string{"dashboard", "console", "notifications", "logs"}

func (v View) String() string {
	if int(v) < len(viewNames) {
		return viewNames[v]
	}
	return "dashboard"
}

func parseView(name string) View {
	for i, n := range viewNames {
		if n == name {
			return View(i)
		}
	}
	return ViewDashboard
}

// Backend is what the UI reads from and commands. Commands return
// immediately; results surface as notifications and console lines.
type Backend interface {
	Snapshot() printer.Snapshot
	History(device, metric string, n int) ([]float64, bool)
	ConnState() moonraker.ConnState
	Session() string

	SendGcode(script string)
	Pause()
	Resume()
	Cancel()
	EmergencyStop()
	FirmwareRestart()
	Retry()
	TogglePower(device string)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   Backend
	Notify    *notify.Center
	Console   *console.Buffer
	Config    *config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	PollTick  time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	backend   Backend
	notes     *notify.Center
	console   *console.Buffer
	config    *config.Config
	prefs     prefs.Prefs
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	modal       Modal
	showHelp    bool

	// Data state
	snapshot    printer.Snapshot
	conn        moonraker.ConnState
	session     string
	lastUpdated time.Time

	// Dashboard state
	selectedPower int

	// Console state
	prompt        textinput.Model
	promptHistory []string
	historyIdx    int
	consoleView   viewport.Model
	consoleSeq    uint64
	consoleFollow bool

	// Notifications state
	notesView viewport.Model
	notesSeq  uint64

	// Log state
	logView  viewport.Model
	logState logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}

	prompt := textinput.New()
	prompt.Prompt = "> "
	prompt.Placeholder = "G-code, e.g. G28 or M104 S200"
	prompt.CharLimit = 256

	return Model{
		ctx:           ctx,
		backend:       opts.Backend,
		notes:         opts.Notify,
		console:       opts.Console,
		config:        opts.Config,
		prefs:         p,
		prefsPath:     opts.PrefsPath,
		pollTick:      pollTick,
		keys:          DefaultKeyMap(),
		theme:         GetTheme(p.Theme),
		currentView:   parseView(p.View),
		prompt:        prompt,
		historyIdx:    -1,
		consoleFollow: true,
		logState:      logState{follow: true},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		textinput.Blink,
	}
	if m.backend != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.backend))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, m.refreshLogs())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewports()
		m.syncConsole(true)
		m.syncNotifications(true)
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.conn = msg.conn
		m.session = msg.session
		m.lastUpdated = time.Now()
		if n := len(m.snapshot.Power); m.selectedPower >= n {
			m.selectedPower = maxInt(n-1, 0)
		}
		m.syncConsole(false)
		m.syncNotifications(false)
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	if m.currentView == ViewConsole {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// View cycling works everywhere, including inside the prompt.
	switch {
	case key.Matches(msg, m.keys.Tab):
		return m.switchView((m.currentView + 1) % View(len(viewNames)))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView((m.currentView + View(len(viewNames)) - 1) % View(len(viewNames)))
	}

	if m.currentView == ViewConsole {
		return m.handleConsoleKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.syncConsole(true)
		m.syncNotifications(true)
		m.updateLogViewport()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewDashboard)
	case key.Matches(msg, m.keys.ViewDashboard):
		return m.switchView(ViewDashboard)
	case key.Matches(msg, m.keys.ViewConsole):
		return m.switchView(ViewConsole)
	case key.Matches(msg, m.keys.ViewNotifications):
		return m.switchView(ViewNotifications)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)

	case key.Matches(msg, m.keys.PauseResume):
		m.pauseOrResume()
		return m, nil
	case key.Matches(msg, m.keys.CancelPrint):
		m.confirmCancel()
		return m, nil
	case key.Matches(msg, m.keys.EmergencyStop):
		m.modal = newConfirm("Emergency stop",
			"Halt the printer immediately? Klipper will need a firmware restart.",
			true, m.backend.EmergencyStop)
		return m, nil
	case key.Matches(msg, m.keys.FirmwareRestart):
		m.modal = newConfirm("Firmware restart",
			"Restart Klipper and all MCUs?", true, m.backend.FirmwareRestart)
		return m, nil
	case key.Matches(msg, m.keys.Reconnect):
		m.backend.Retry()
		return m, nil
	}

	switch m.currentView {
	case ViewDashboard:
		return m.handleDashboardKey(msg)
	case ViewNotifications:
		return m.handleNotificationsKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	m.prefs.View = v.String()
	m.savePrefs()

	var cmd tea.Cmd
	switch v {
	case ViewConsole:
		cmd = m.prompt.Focus()
		m.syncConsole(true)
	case ViewNotifications:
		m.prompt.Blur()
		m.syncNotifications(true)
	case ViewLogs:
		m.prompt.Blur()
		cmd = m.refreshLogs()
	default:
		m.prompt.Blur()
	}
	return m, cmd
}

func (m Model) pauseOrResume() {
	switch m.snapshot.State {
	case printer.StatePrinting:
		m.backend.Pause()
	case printer.StatePaused:
		m.backend.Resume()
	default:
		if m.notes != nil {
			m.notes.Info("No print to pause or resume")
		}
	}
}

func (m *Model) confirmCancel() {
	if !m.snapshot.State.Active() {
		if m.notes != nil {
			m.notes.Info("No print to cancel")
		}
		return
	}
	body := "Cancel the current print?"
	if name := m.snapshot.Job.Filename; name != "" {
		body = "Cancel " + name + "?"
	}
	m.modal = newConfirm("Cancel print", body, true, m.backend.Cancel)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil && m.notes != nil {
		m.notes.Warn("Could not save preferences: " + err.Error())
	}
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.backend != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.backend))
	}
	if m.currentView == ViewLogs && m.logState.follow && time.Since(m.logState.lastRefresh) >= LogRefreshInterval {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) resizeViewports() {
	// header + command bar + box borders
	inner := maxInt(m.height-4, 1)
	width := maxInt(m.width-4, 1)

	if m.consoleView.Width == 0 {
		m.consoleView = viewport.New(width, maxInt(inner-1, 1))
		m.notesView = viewport.New(width, inner)
		m.logView = viewport.New(width, maxInt(inner-1, 1))
	}
	m.consoleView.Width, m.consoleView.Height = width, maxInt(inner-1, 1)
	m.notesView.Width, m.notesView.Height = width, inner
	m.logView.Width, m.logView.Height = width, maxInt(inner-1, 1)
	m.prompt.Width = maxInt(width-4, 10)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewConsole:
		return m.renderConsole()
	case ViewNotifications:
		return m.renderNotifications()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderDashboard()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	snapshot printer.Snapshot
	conn     moonraker.ConnState
	session  string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{
			snapshot: b.Snapshot(),
			conn:     b.ConnState(),
			session:  b.Session(),
		}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
