package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/trolley/internal/cart"
	"github.com/five82/trolley/internal/prefs"
	"github.com/five82/trolley/internal/state"
)

// CartEngine is the subset of the sync engine the cart page drives.
// Every method returns immediately; results arrive through the store.
type CartEngine interface {
	Increment(itemID int64) bool
	Decrement(itemID int64) bool
	RemoveItem(itemID int64) bool
	Refresh()
}

// Options configures the UI.
type Options struct {
	Context       context.Context
	Engine        CartEngine
	Store         *state.Store
	LogPath       string
	PollTick      time.Duration
	ThemeName     string
	PrefsPath     string
	ConfirmRemove bool
	// LoginHint is shown on the login prompt, usually where the token lives.
	LoginHint string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx           context.Context
	engine        CartEngine
	store         *state.Store
	logPath       string
	prefsPath     string
	pollTick      time.Duration
	confirmRemove bool
	loginHint     string

	// UI state
	keys   keyMap
	theme  Theme
	width  int
	height int
	ready  bool

	// Data state
	snapshot state.Snapshot

	// Cart state
	selectedRow int

	// Log pane
	showLogs    bool
	logViewport viewport.Model
	logLines    []string
	logErr      error

	// Overlays
	showHelp bool
	modal    Modal
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

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Default().Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return Model{
		ctx:           ctx,
		engine:        opts.Engine,
		store:         opts.Store,
		logPath:       opts.LogPath,
		prefsPath:     prefsPath,
		pollTick:      pollTick,
		confirmRemove: opts.ConfirmRemove,
		loginHint:     opts.LoginHint,
		keys:          DefaultKeyMap(),
		theme:         GetTheme(themeName),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	}
	// Fetch snapshot immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
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
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case logTailMsg:
		m.logLines = msg.lines
		m.logErr = msg.err
		m.updateLogViewport()
		return m, nil

	case removeConfirmedMsg:
		return m, m.removeItem(msg.itemID)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			name := m.theme.Name
			_, _ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
		}
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		if m.showLogs {
			m.updateLogViewport()
			return m, m.refreshLogs()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.store != nil {
			m.store.DismissNotices()
		}
		if m.engine != nil {
			m.engine.Refresh()
		}
		return m, m.snapshotCmd()

	case key.Matches(msg, m.keys.Escape):
		if m.store != nil {
			m.store.DismissNotices()
		}
		return m, m.snapshotCmd()
	}

	return m.handleCartKey(msg)
}

// handleCartKey processes keys that act on the selected line.
func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.snapshot.View.Cart.Items
	itemCount := len(items)
	if itemCount == 0 || m.snapshot.NeedsLogin {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < itemCount-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = itemCount - 1

	case key.Matches(msg, m.keys.Increment):
		line, ok := m.selectedLine()
		if ok && m.engine != nil {
			m.engine.Increment(line.ItemID)
			return m, m.snapshotCmd()
		}
	case key.Matches(msg, m.keys.Decrement):
		line, ok := m.selectedLine()
		if ok && m.engine != nil {
			m.engine.Decrement(line.ItemID)
			return m, m.snapshotCmd()
		}
	case key.Matches(msg, m.keys.Remove):
		line, ok := m.selectedLine()
		if !ok {
			return m, nil
		}
		if m.confirmRemove {
			m.modal = newConfirmRemoveModal(line)
			return m, nil
		}
		return m, m.removeItem(line.ItemID)
	}

	return m, nil
}

// removeItem asks the engine to delete a line and refreshes the view.
func (m Model) removeItem(itemID int64) tea.Cmd {
	if m.engine == nil {
		return nil
	}
	m.engine.RemoveItem(itemID)
	return m.snapshotCmd()
}

// selectedLine returns the line under the cursor.
func (m Model) selectedLine() (cart.Line, bool) {
	items := m.snapshot.View.Cart.Items
	if m.selectedRow < 0 || m.selectedRow >= len(items) {
		return cart.Line{}, false
	}
	return items[m.selectedRow], true
}

// clampSelection keeps the cursor on an existing line after the cart shrinks.
func (m *Model) clampSelection() {
	count := m.snapshot.View.Cart.Len()
	if m.selectedRow >= count {
		m.selectedRow = count - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.ctx.Err() != nil {
		return m, tea.Quit
	}

	if cmd := m.snapshotCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}

	if m.showLogs {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	// Schedule next tick
	cmds = append(cmds, tickCmd(m.pollTick))

	return m, tea.Batch(cmds...)
}

func (m Model) snapshotCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// options context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	var progOpts []tea.ProgramOption
	progOpts = append(progOpts, tea.WithAltScreen())
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	if err != nil && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
