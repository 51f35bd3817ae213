package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kylesnowschwartz/tail-runs/runs"

	"charm.land/lipgloss/v2"
)

// Static messages shown instead of the list.
const (
	msgSignedOut = "Sign in to view your runs"
	msgNoRuns    = "No recorded runs"
)

// defaultRenderWidth is used before the first WindowSizeMsg arrives.
const defaultRenderWidth = 80

// render builds the full frame: header, body, footer.
func (m model) render() string {
	width := m.clampWidth()
	if width <= 0 {
		width = defaultRenderWidth
	}

	var body string
	switch m.view {
	case viewDetail, viewHelp:
		body = m.renderPage(width)
	default:
		body = m.renderListBody(width)
	}
	return m.renderHeader(width) + "\n" + body + "\n" + m.renderFooter(width)
}

// renderHeader shows the title, the signed-in identity and whether the live
// subscription is open.
func (m model) renderHeader(width int) string {
	title := m.theme.AccentBold.Render("Runs")
	switch m.view {
	case viewDetail:
		title += m.theme.Dim.Render("  " + IconDot + "  detail")
	case viewHelp:
		title += m.theme.Dim.Render("  " + IconDot + "  help")
	}

	status := m.theme.Muted.Render(IconPaused + " paused")
	if m.screen.focused && m.screen.sub != nil {
		status = lipgloss.NewStyle().Foreground(m.theme.Live).Render(IconLive + " live")
	}
	if u := m.screen.user; u != nil && m.screen.signedIn {
		who := u.Email
		if who == "" {
			who = u.UID
		}
		status = m.theme.Secondary.Render(who) + "  " + status
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + status
}

// renderListBody renders the visible slice of the runs list, or the
// signed-out / empty message.
func (m model) renderListBody(width int) string {
	if !m.screen.signedIn {
		return m.renderStatusMessage(msgSignedOut, width)
	}
	if len(m.screen.runs) == 0 {
		return m.renderStatusMessage(msgNoRuns, width)
	}

	content := m.renderList(width)
	if m.height <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	return strings.Join(window(lines, m.scroll, m.listViewHeight()), "\n")
}

// renderList joins every row with a divider line. computeLineOffsets
// mirrors this layout.
func (m model) renderList(width int) string {
	divider := m.theme.Muted.Render(strings.Repeat(IconDivider, width))
	rows := make([]string, len(m.screen.runs))
	for i, r := range m.screen.runs {
		rows[i] = m.renderRow(r, width, i == m.cursor)
	}
	return strings.Join(rows, "\n"+divider+"\n")
}

// renderRow renders one run as a title line and three detail lines.
func (m model) renderRow(r runs.Run, width int, selected bool) string {
	gutter := "  "
	if selected {
		gutter = m.theme.AccentBold.Render(IconCursor) + " "
	}
	clip := lipgloss.NewStyle().MaxWidth(width)

	lines := []string{
		gutter + m.theme.PrimaryBold.Render("Date: "+runs.FormatDateValue(r.Date)),
		"  " + m.theme.Secondary.Render("Distance: "+r.Distance.String()+" km"),
		"  " + m.theme.Secondary.Render("Duration: "+r.Duration.String()),
		"  " + m.theme.Secondary.Render("Average Speed: "+r.AverageSpeed.String()+" Km/h"),
	}
	for i, l := range lines {
		lines[i] = clip.Render(l)
	}
	return strings.Join(lines, "\n")
}

// renderStatusMessage centers text a third of the way down the viewport.
func (m model) renderStatusMessage(text string, width int) string {
	top := 0
	if m.height > 0 {
		top = m.listViewHeight() / 3
	}
	return m.theme.StatusMessage.Width(width).PaddingTop(top).Render(text)
}

// renderFooter shows list totals and key hints.
func (m model) renderFooter(width int) string {
	var left string
	switch m.view {
	case viewDetail, viewHelp:
		left = m.theme.Dim.Render("j/k scroll  esc back  q back")
	default:
		if m.screen.signedIn && len(m.screen.runs) > 0 {
			s := runs.Summarize(m.screen.runs)
			noun := "runs"
			if s.Count == 1 {
				noun = "run"
			}
			left = m.theme.Secondary.Render(fmt.Sprintf("%d %s %s %s", s.Count, noun, IconDot, runs.FormatDistance(s.TotalDistance)))
		}
	}
	hints := m.theme.Dim.Render("enter details  ? help  q quit")
	if m.view != viewList {
		hints = ""
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(hints)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + hints
}

// renderPage renders the visible part of the detail or help page.
func (m model) renderPage(width int) string {
	content := strings.TrimRight(m.renderPageBody(width), "\n")
	if m.height <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	return strings.Join(window(lines, m.detailScroll, m.listViewHeight()), "\n")
}

// renderPageBody is the full, unscrolled detail or help content.
func (m model) renderPageBody(width int) string {
	if m.view == viewHelp {
		return m.md.renderMarkdown(helpMarkdown, width)
	}
	return m.renderDetail(m.detailRun, width)
}

// renderDetail shows the formatted fields and the raw stored record.
func (m model) renderDetail(r runs.Run, width int) string {
	var b strings.Builder
	b.WriteString(m.theme.PrimaryBold.Render("Date: " + runs.FormatDateValue(r.Date)))
	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("Key: " + r.Key))
	b.WriteString("\n\n")

	// Decoded records keep their stored bytes, unknown fields included.
	raw := r.Raw
	if len(raw) == 0 {
		encoded, err := json.Marshal(r)
		if err != nil {
			b.WriteString(m.theme.ErrorBold.Render("cannot encode record: " + err.Error()))
			return b.String()
		}
		raw = encoded
	}
	body, err := m.records.render(raw)
	if err != nil {
		b.WriteString(m.theme.ErrorBold.Render(err.Error()))
		return b.String()
	}
	b.WriteString(lipgloss.NewStyle().MaxWidth(width).Render(strings.TrimRight(body, "\n")))
	return b.String()
}
