package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/skein-net/skein/internal/bus"
	"github.com/skein-net/skein/internal/circuit"
	"github.com/skein-net/skein/internal/engine"
	"github.com/skein-net/skein/internal/journal"
	"github.com/skein-net/skein/internal/prefs"
)

// View represents the current active view.
type View int

const (
	ViewCircuits View = iota
	ViewLogs
)

const logDisplayLimit = 2000

// Options configures the UI.
type Options struct {
	Context     context.Context
	Hub         *bus.Hub
	Controller  *engine.Controller
	PollTick    time.Duration
	ThemeName   string
	PrefsPath   string // empty uses default ~/.config/skein/prefs.toml
	InitialMode bus.Mode
}

// modePane holds the display state one daemon mode accumulates. The two
// panes are fully independent, like the pipelines feeding them.
type modePane struct {
	circuits  []circuit.Circuit
	inUse     *circuit.Circuit
	entries   []journal.Entry
	connected bool
	selected  int
	follow    bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	hub       *bus.Hub
	ctl       *engine.Controller
	pollTick  time.Duration
	prefsPath string

	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	mode  bus.Mode
	panes map[bus.Mode]*modePane

	logViewport viewport.Model

	showHelp bool
	lastErr  error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	mode := opts.InitialMode
	if mode != bus.ModeClient && mode != bus.ModeRelay {
		mode = bus.ModeClient
	}

	return Model{
		ctx:         ctx,
		hub:         opts.Hub,
		ctl:         opts.Controller,
		pollTick:    pollTick,
		prefsPath:   prefsPath,
		theme:       GetTheme(themeName),
		currentView: ViewCircuits,
		mode:        mode,
		panes: map[bus.Mode]*modePane{
			bus.ModeClient: {follow: true},
			bus.ModeRelay:  {follow: true},
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		resumeCmd(m.ctx, m.ctl, m.mode),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, contentHeight(msg.Height))
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = contentHeight(msg.Height)
		}
		m.ready = true
		m.refreshLogViewport()
		return m, nil

	case tickMsg:
		// Ages and expiry countdowns are relative to now; re-render.
		return m, tickCmd(m.pollTick)

	case busEventMsg:
		m.applyEvent(bus.Event(msg))
		return m, nil

	case resumeResultMsg:
		m.lastErr = msg.err
		return m, nil
	}

	return m, nil
}

// applyEvent folds one bus event into the owning mode's pane.
func (m *Model) applyEvent(ev bus.Event) {
	pane, ok := m.panes[ev.Mode]
	if !ok {
		return
	}

	switch ev.Name {
	case bus.EventCircuitsUpdated:
		pane.circuits = ev.Circuits
		if pane.selected >= len(pane.circuits) && len(pane.circuits) > 0 {
			pane.selected = len(pane.circuits) - 1
		}
	case bus.EventCircuitInUse:
		pane.inUse = ev.Circuit
	case bus.EventLogEntry:
		if ev.Entry != nil {
			pane.entries = append(pane.entries, *ev.Entry)
			if overflow := len(pane.entries) - logDisplayLimit; overflow > 0 {
				pane.entries = append([]journal.Entry(nil), pane.entries[overflow:]...)
			}
		}
		if ev.Mode == m.mode && m.currentView == ViewLogs {
			m.refreshLogViewport()
		}
	case bus.EventConnection:
		pane.connected = ev.Connected
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.currentView {
	case ViewCircuits:
		b.WriteString(m.renderCircuits())
	case ViewLogs:
		b.WriteString(m.logViewport.View())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "e":
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case "tab":
		m.switchMode()
		return m, nil

	case "c":
		m.setMode(bus.ModeClient)
		return m, nil

	case "r":
		m.setMode(bus.ModeRelay)
		return m, nil

	case "q", "esc":
		m.currentView = ViewCircuits
		return m, nil

	case "l":
		m.currentView = ViewLogs
		m.refreshLogViewport()
		return m, nil

	case " ":
		// Pause/resume the active mode's pipeline.
		if m.ctl.Running(m.mode) {
			mode := m.mode
			return m, func() tea.Msg {
				m.ctl.Pause(mode)
				return resumeResultMsg{}
			}
		}
		return m, resumeCmd(m.ctx, m.ctl, m.mode)
	}

	switch m.currentView {
	case ViewCircuits:
		return m.handleCircuitsKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

func (m *Model) switchMode() {
	if m.mode == bus.ModeClient {
		m.setMode(bus.ModeRelay)
	} else {
		m.setMode(bus.ModeClient)
	}
}

func (m *Model) setMode(mode bus.Mode) {
	if m.mode == mode {
		return
	}
	m.mode = mode
	m.refreshLogViewport()
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Mode: string(m.mode)})
}

// handleCircuitsKey processes keyboard input for the circuits table.
func (m Model) handleCircuitsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pane := m.panes[m.mode]
	count := len(pane.circuits)
	if count == 0 {
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		if pane.selected < count-1 {
			pane.selected++
		}
	case "k", "up":
		if pane.selected > 0 {
			pane.selected--
		}
	case "g", "home":
		pane.selected = 0
	case "G", "end":
		pane.selected = count - 1
	}

	return m, nil
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pane := m.panes[m.mode]

	switch msg.String() {
	case "f":
		pane.follow = !pane.follow
		if pane.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case "j", "down":
		pane.follow = false
		m.logViewport.LineDown(1)
		return m, nil
	case "k", "up":
		pane.follow = false
		m.logViewport.LineUp(1)
		return m, nil
	case "ctrl+d":
		pane.follow = false
		m.logViewport.HalfViewDown()
		return m, nil
	case "ctrl+u":
		pane.follow = false
		m.logViewport.HalfViewUp()
		return m, nil
	case "g", "home":
		pane.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case "G", "end":
		m.logViewport.GotoBottom()
		return m, nil
	}

	return m, nil
}

func (m *Model) refreshLogViewport() {
	if !m.ready {
		return
	}
	pane := m.panes[m.mode]
	m.logViewport.SetContent(m.renderLogLines(pane.entries))
	if pane.follow {
		m.logViewport.GotoBottom()
	}
}

// contentHeight reserves one line each for the header and footer.
func contentHeight(total int) int {
	h := total - 2
	if h < 1 {
		h = 1
	}
	return h
}

// Messages

type tickMsg time.Time

type busEventMsg bus.Event

type resumeResultMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func resumeCmd(ctx context.Context, ctl *engine.Controller, mode bus.Mode) tea.Cmd {
	return func() tea.Msg {
		return resumeResultMsg{err: ctl.Resume(ctx, mode)}
	}
}

// Run starts the Bubble Tea program. Bus events are forwarded into the
// program as messages; the subscription is dropped when the program exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	unsubscribe := func() {}
	if opts.Hub != nil {
		unsubscribe = opts.Hub.Subscribe(func(ev bus.Event) {
			p.Send(busEventMsg(ev))
		})
	}
	defer unsubscribe()

	_, err := p.Run()
	return err
}
