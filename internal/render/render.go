// Package render expands templated CSV sources before they are parsed.
//
// Templates use text/template with the sprig function map, so a cell written
// as {{ add 1 1 }} renders as 2. The template dot is the seeder that owns the
// file.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Trim modes control how newlines around actions are removed before parsing.
const (
	// TrimMarkers relies on {{- and -}} markers only. It is the default.
	TrimMarkers = "-"
	// TrimActionLines drops the newline after any line ending in an action.
	TrimActionLines = ">"
	// TrimTagLines drops the newline after lines that both start and end
	// with an action.
	TrimTagLines = "<>"
)

// ValidTrimMode reports an error for modes other than "", "-", ">" and "<>".
func ValidTrimMode(mode string) error {
	switch mode {
	case "", TrimMarkers, TrimActionLines, TrimTagLines:
		return nil
	}
	return fmt.Errorf("unsupported trim mode %q", mode)
}

// Render executes text as a template named name with data as its dot.
func Render(name, text string, data any, trimMode string) (string, error) {
	if err := ValidTrimMode(trimMode); err != nil {
		return "", err
	}

	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(trimLines(text, trimMode))
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// trimLines joins lines whose trailing newline the mode suppresses.
func trimLines(text, mode string) string {
	if mode != TrimActionLines && mode != TrimTagLines {
		return text
	}

	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		if body == line {
			b.WriteString(line)
			continue
		}
		trimmed := strings.TrimSpace(body)
		drop := strings.HasSuffix(trimmed, "}}")
		if mode == TrimTagLines {
			drop = drop && strings.HasPrefix(trimmed, "{{")
		}
		if drop {
			b.WriteString(body)
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
