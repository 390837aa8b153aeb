// Package sanitize cleans console output before it is returned to a tool
// caller or printed: terminal escape sequences go, line endings are unified.
package sanitize

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes terminal escape sequences such as SGR colors and OSC hyperlinks.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips escape sequences, converts CRLF and lone CR line endings to
// LF, and trims surrounding whitespace.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// Lines returns the cleaned text split into lines.
func Lines(s string) []string {
	s = Clean(s)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

// Tail returns the last n lines of lines, or all of them when n < 1.
func Tail(lines []string, n int) []string {
	if n < 1 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
