package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for wide characters
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate shortens text to maxWidth display columns, ending in "..." when
// anything was cut and there is room for it.
func Truncate(s string, maxWidth int) string {
	s = strings.TrimSpace(s)
	if maxWidth <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxWidth {
		return s
	}
	if maxWidth > 3 {
		return runewidth.Truncate(s, maxWidth-3, "") + "..."
	}
	return runewidth.Truncate(s, maxWidth, "")
}

// FirstLine returns the first non-blank line of text, trimmed.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// ShortBranch drops the refs/heads/ prefix for display. Pull request merge
// refs are kept whole so they stay recognizable.
func ShortBranch(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// Deref renders an optional string, using fallback for nil.
func Deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
