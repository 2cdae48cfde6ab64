// Package render formats text for fixed-width terminal output.
package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// Sanitize drops control characters and invalid UTF-8 from tag text and
// turns non-breaking spaces into plain ones. Tabs are kept.
func Sanitize(s string) string {
	clean := true
	for _, r := range s {
		if r == unicode.ReplacementChar || r == '\u00a0' || (r != '\t' && unicode.IsControl(r)) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u00a0':
			return ' '
		case r == unicode.ReplacementChar, r != '\t' && unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

// Truncate shortens s to width cells, ending it with an ellipsis when cut.
// Wide characters count as two cells.
func Truncate(s string, width int) string {
	return runewidth.Truncate(Sanitize(s), width, ellipsis)
}

// TruncateLeft keeps the end of s, for paths whose file name matters most.
func TruncateLeft(s string, width int) string {
	s = Sanitize(s)
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return runewidth.TruncateLeft(s, runewidth.StringWidth(s)-width, "")
	}
	cut := runewidth.StringWidth(s) - width + 1
	return runewidth.TruncateLeft(s, cut, ellipsis)
}

// Pad fills s with spaces up to width cells.
func Pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Fit truncates then pads s to exactly width cells.
func Fit(s string, width int) string {
	return Pad(Truncate(s, width), width)
}

// Row places left and right at both ends of width cells, at least one space apart.
func Row(left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}
