package main

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// -- Colors ---------------------------------------------------------------
// Light values: ANSI 0-15 for accents (palette-adaptive), 256-color for grays.
// ANSI 7/15 (white) are invisible on light backgrounds, never use them for
// Light values. Dark values: 256-color codes tuned for dark backgrounds.
//
// | Name          | Light | Dark  |
// |---------------|-------|-------|
// | TextPrimary   |   "0" | "252" |
// | TextSecondary |   "8" | "245" |
// | TextDim       | "242" | "243" |
// | TextMuted     | "245" | "240" |
// | Accent        |   "4" |  "75" |
// | Error         |   "1" | "196" |
// | Border        | "250" |  "60" |
// | Live          |   "2" |  "76" |
// | SelectedBg    | "254" | "237" |

// theme resolves the palette for one background once, at startup.
type theme struct {
	TextPrimary   color.Color
	TextSecondary color.Color
	TextDim       color.Color
	TextMuted     color.Color
	Accent        color.Color
	Error         color.Color
	Border        color.Color
	Live          color.Color
	SelectedBg    color.Color

	// Semantic styles. lipgloss styles are value types, so chaining
	// (.Width(), .Padding()) on these returns copies.
	PrimaryBold   lipgloss.Style
	Secondary     lipgloss.Style
	Dim           lipgloss.Style
	Muted         lipgloss.Style
	AccentBold    lipgloss.Style
	ErrorBold     lipgloss.Style
	StatusMessage lipgloss.Style
}

func newTheme(hasDarkBg bool) theme {
	ac := lipgloss.LightDark(hasDarkBg)
	c := func(light, dark string) color.Color {
		return ac(lipgloss.Color(light), lipgloss.Color(dark))
	}

	t := theme{
		TextPrimary:   c("0", "252"),
		TextSecondary: c("8", "245"),
		TextDim:       c("242", "243"),
		TextMuted:     c("245", "240"),
		Accent:        c("4", "75"),
		Error:         c("1", "196"),
		Border:        c("250", "60"),
		Live:          c("2", "76"),
		SelectedBg:    c("254", "237"),
	}

	t.PrimaryBold = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.Secondary = lipgloss.NewStyle().Foreground(t.TextSecondary)
	t.Dim = lipgloss.NewStyle().Foreground(t.TextDim)
	t.Muted = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.AccentBold = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.ErrorBold = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	t.StatusMessage = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Align(lipgloss.Center)
	return t
}
