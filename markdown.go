package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"golang.org/x/term"
)

// helpMarkdown is the help page source.
const helpMarkdown = `# Runs

Your recorded runs, mirrored live from the runs database. The list
updates as soon as a run is added anywhere, and follows sign-in and
sign-out.

## Keys

| Key | Action |
|-----|--------|
| ` + "`j` / `k`" + ` | move down / up |
| ` + "`g` / `G`" + ` | first / last run |
| ` + "`ctrl+d` / `ctrl+u`" + ` | half page down / up |
| ` + "`enter`" + ` | show the stored record |
| ` + "`r`" + ` | reconnect |
| ` + "`?`" + ` | this help |
| ` + "`esc`" + ` | back to the list |
| ` + "`q`" + ` | quit (back, from a page) |

## Commands

- ` + "`tail-runs add --distance 5.2 --duration 28:10`" + ` records a run
- ` + "`tail-runs signin --uid <id>`" + ` or ` + "`--token <id_token>`" + ` signs in
- ` + "`tail-runs signout`" + ` signs out

While this page is open the list is paused; it resubscribes when you
return.
`

// mdRenderer caches a glamour terminal renderer at a specific width.
// Recreates the renderer when the width changes.
type mdRenderer struct {
	hasDarkBg bool
	renderer  *glamour.TermRenderer
	width     int
}

// styleFor returns the glamour style config with Document.Margin zeroed out
// so the page layout handles its own padding.
func styleFor(hasDarkBg bool) ansi.StyleConfig {
	var style ansi.StyleConfig
	switch {
	case !term.IsTerminal(int(os.Stdout.Fd())):
		style = styles.NoTTYStyleConfig
	case hasDarkBg:
		style = styles.DarkStyleConfig
	default:
		style = styles.LightStyleConfig
	}
	style.Document.Margin = uintPtr(0)
	return style
}

func uintPtr(v uint) *uint { return &v }

// renderMarkdown renders markdown content for terminal display.
// Returns the original content on error. Recreates the renderer if width changed.
func (r *mdRenderer) renderMarkdown(content string, width int) string {
	if width <= 0 {
		return content
	}
	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStyles(styleFor(r.hasDarkBg)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		r.renderer = renderer
		r.width = width
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
