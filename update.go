package main

import tea "charm.land/bubbletea/v2"

// scrollStep is how many lines wheel and arrow scrolling move.
const scrollStep = 3

// updateList handles key events in the runs list.
func (m model) updateList(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	n := len(m.screen.runs)
	switch msg.String() {
	case "q", "ctrl+c":
		m.screen.exit()
		return m, tea.Quit
	case "j", "down":
		if m.cursor < n-1 {
			m.cursor++
		}
		m.ensureCursorVisible()
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()
	case "G", "end":
		if n > 0 {
			m.cursor = n - 1
			m.ensureCursorVisible()
		}
	case "g", "home":
		m.cursor = 0
		m.scroll = 0
	case "ctrl+d", "pgdown":
		m.scroll += m.listViewHeight() / 2
		m.clampListScroll()
	case "ctrl+u", "pgup":
		m.scroll -= m.listViewHeight() / 2
		m.clampListScroll()
	case "r":
		// Force a fresh focus session: new listener, new subscription.
		return m, m.screen.enter()
	case "enter":
		if m.cursor < n {
			m.detailRun = m.screen.runs[m.cursor]
			m.detailScroll = 0
			m.view = viewDetail
			return m, m.syncFocus()
		}
	case "?":
		m.view = viewHelp
		m.detailScroll = 0
		return m, m.syncFocus()
	}
	return m, nil
}

// updateListWheel scrolls the list viewport without moving the cursor.
func (m model) updateListWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	switch msg.Mouse().Button {
	case tea.MouseWheelUp:
		m.scroll -= scrollStep
	case tea.MouseWheelDown:
		m.scroll += scrollStep
	}
	m.clampListScroll()
	return m, nil
}

// updateDetail handles key events in the run detail view.
func (m model) updateDetail(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.screen.exit()
		return m, tea.Quit
	case "q", "esc", "backspace":
		return m.backToList()
	case "j", "down":
		m.detailScroll++
		m.clampDetailScroll()
	case "k", "up":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
	case "?":
		m.view = viewHelp
		m.detailScroll = 0
	}
	return m, nil
}

// updateHelp handles key events in the help view.
func (m model) updateHelp(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.screen.exit()
		return m, tea.Quit
	case "q", "esc", "?", "backspace":
		return m.backToList()
	case "j", "down":
		m.detailScroll++
		m.clampDetailScroll()
	case "k", "up":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
	}
	return m, nil
}

// backToList returns to the list and refocuses the runs screen.
func (m model) backToList() (tea.Model, tea.Cmd) {
	m.view = viewList
	m.detailScroll = 0
	cmd := m.syncFocus()
	m.computeLineOffsets()
	m.ensureCursorVisible()
	return m, cmd
}
