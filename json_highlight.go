package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/colorprofile"
)

// recordView renders a stored record for the detail page: indented JSON,
// syntax-highlighted when the terminal profile has color.
type recordView struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter // nil renders plain text
}

func newRecordView(hasDarkBg bool, profile colorprofile.Profile) *recordView {
	style := styles.Get("github")
	if hasDarkBg {
		style = styles.Get("dracula")
	}
	return &recordView{
		lexer:     chroma.Coalesce(lexers.Get("json")),
		style:     style,
		formatter: formatterFor(profile),
	}
}

// render indents raw and highlights it. A highlighting failure falls back
// to the indented text; only invalid JSON is an error.
func (v *recordView) render(raw json.RawMessage) (string, error) {
	var indented bytes.Buffer
	if err := json.Indent(&indented, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indenting record: %w", err)
	}
	plain := indented.String()
	if v.formatter == nil {
		return plain, nil
	}

	tokens, err := v.lexer.Tokenise(nil, plain)
	if err != nil {
		return plain, nil
	}
	var out bytes.Buffer
	if err := v.formatter.Format(&out, v.style, tokens); err != nil {
		return plain, nil
	}
	return out.String(), nil
}

// formatterFor picks the chroma terminal formatter matching profile, or nil
// when the output takes no color.
func formatterFor(profile colorprofile.Profile) chroma.Formatter {
	switch profile {
	case colorprofile.TrueColor:
		return formatters.Get("terminal16m")
	case colorprofile.ANSI256:
		return formatters.Get("terminal256")
	case colorprofile.ANSI:
		return formatters.Get("terminal16")
	default:
		return nil
	}
}
