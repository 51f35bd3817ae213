package main

import "strings"

// maxContentWidth caps row width on very wide terminals.
const maxContentWidth = 100

// clampWidth returns m.width capped at maxContentWidth.
func (m model) clampWidth() int {
	if m.width > maxContentWidth {
		return maxContentWidth
	}
	return m.width
}

// listViewHeight is the number of lines available to rows: the header and
// footer take one line each.
func (m model) listViewHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

// computeLineOffsets calculates the starting line of each row in the
// rendered list. Must mirror renderList's joining to keep scroll accurate.
func (m *model) computeLineOffsets() {
	list := m.screen.runs
	m.lineOffsets = make([]int, len(list))
	m.rowLines = make([]int, len(list))
	if m.width == 0 || len(list) == 0 {
		m.totalRenderedLines = 0
		return
	}
	width := m.clampWidth()

	current := 0
	for i, r := range list {
		m.lineOffsets[i] = current
		lines := strings.Count(m.renderRow(r, width, false), "\n") + 1
		m.rowLines[i] = lines
		current += lines
		if i < len(list)-1 {
			current++ // divider between rows
		}
	}
	last := len(list) - 1
	m.totalRenderedLines = m.lineOffsets[last] + m.rowLines[last]
}

// ensureCursorVisible adjusts scroll so the selected row is in view.
func (m *model) ensureCursorVisible() {
	if len(m.lineOffsets) == 0 || m.height == 0 || m.cursor >= len(m.lineOffsets) {
		return
	}
	viewHeight := m.listViewHeight()

	start := m.lineOffsets[m.cursor]
	end := start + m.rowLines[m.cursor] - 1

	if start < m.scroll {
		m.scroll = start
	}
	if end >= m.scroll+viewHeight {
		m.scroll = end - viewHeight + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// clampListScroll caps the list scroll offset so it can't exceed the content.
func (m *model) clampListScroll() {
	maxScroll := m.totalRenderedLines - m.listViewHeight()
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// clampDetailScroll caps scrolling in the detail and help views.
func (m *model) clampDetailScroll() {
	total := strings.Count(strings.TrimRight(m.renderPageBody(m.clampWidth()), "\n"), "\n") + 1
	maxScroll := total - m.listViewHeight()
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.detailScroll > maxScroll {
		m.detailScroll = maxScroll
	}
	if m.detailScroll < 0 {
		m.detailScroll = 0
	}
}

// window returns the visible slice of lines for a viewport of height
// starting at offset.
func window(lines []string, offset, height int) []string {
	if offset > len(lines) {
		offset = len(lines)
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[offset:end]
}
