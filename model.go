package main

import (
	"os"

	"github.com/kylesnowschwartz/tail-runs/runs"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
)

// View states
type viewState int

const (
	viewList   viewState = iota // runs list (the live screen)
	viewDetail                  // one run's raw record
	viewHelp                    // key bindings
)

type model struct {
	screen *runsScreen

	view   viewState
	cursor int // selected run index
	width  int
	height int
	scroll int

	lineOffsets        []int // starting line of each run in the rendered list
	rowLines           []int // rendered lines per run
	totalRenderedLines int

	// termFocused tracks terminal focus reports. Terminals that never report
	// focus are treated as always focused.
	termFocused bool

	// Detail view state. detailRun is a copy taken when the view opened; the
	// list is blurred while it is shown.
	detailRun    runs.Run
	detailScroll int

	theme   theme
	md      *mdRenderer
	records *recordView
}

func initialModel(screen *runsScreen, hasDarkBg bool) model {
	return model{
		screen:      screen,
		termFocused: true,
		theme:       newTheme(hasDarkBg),
		md:          &mdRenderer{hasDarkBg: hasDarkBg},
		records:     newRecordView(hasDarkBg, colorprofile.Detect(os.Stdout, os.Environ())),
	}
}

// Init starts the first focus session.
func (m model) Init() tea.Cmd {
	return m.screen.enter()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLineOffsets()
		m.ensureCursorVisible()
		return m, nil

	case snapshotMsg:
		selected := m.selectedKey()
		cmd := m.screen.handleSnapshot(msg)
		m.followSelection(selected)
		return m, cmd

	case subscribedMsg:
		return m, m.screen.handleSubscribed(msg)

	case snapshotErrMsg:
		return m, m.screen.handleSnapshotErr(msg)

	case authStateMsg:
		selected := m.selectedKey()
		cmd := m.screen.handleAuthState(msg)
		m.followSelection(selected)
		return m, cmd

	case tea.FocusMsg:
		m.termFocused = true
		return m, m.syncFocus()

	case tea.BlurMsg:
		m.termFocused = false
		return m, m.syncFocus()

	case tea.KeyPressMsg:
		switch m.view {
		case viewDetail:
			return m.updateDetail(msg)
		case viewHelp:
			return m.updateHelp(msg)
		default:
			return m.updateList(msg)
		}

	case tea.MouseWheelMsg:
		if m.view == viewList {
			return m.updateListWheel(msg)
		}
		return m, nil
	}

	return m, nil
}

// syncFocus enters or exits the runs screen so it is focused exactly when
// the list view is showing in a focused terminal.
func (m model) syncFocus() tea.Cmd {
	want := m.view == viewList && m.termFocused
	switch {
	case want && !m.screen.focused:
		return m.screen.enter()
	case !want && m.screen.focused:
		m.screen.exit()
	}
	return nil
}

// selectedKey is the record key under the cursor, or "".
func (m model) selectedKey() string {
	list := m.screen.runs
	if m.cursor >= 0 && m.cursor < len(list) {
		return list[m.cursor].Key
	}
	return ""
}

// followSelection keeps the cursor on the same record across a list
// replacement, falling back to clamping when the record is gone.
func (m *model) followSelection(key string) {
	list := m.screen.runs
	if key != "" {
		for i, r := range list {
			if r.Key == key {
				m.cursor = i
				m.computeLineOffsets()
				m.ensureCursorVisible()
				return
			}
		}
	}
	if m.cursor >= len(list) {
		m.cursor = len(list) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.computeLineOffsets()
	m.clampListScroll()
	m.ensureCursorVisible()
}

// View renders the current state into the program's view.
func (m model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.ReportFocus = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}
