// Package tui renders query results for a terminal: build tables, timeline
// trees and a scrollable pager for console logs.
package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds all customizable style colors.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color

	// Result colors
	Succeeded lipgloss.Color
	Partial   lipgloss.Color
	Failed    lipgloss.Color
	Canceled  lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		Succeeded:     lipgloss.Color("#34A853"),
		Partial:       lipgloss.Color("#FBBC04"),
		Failed:        lipgloss.Color("#EA4335"),
		Canceled:      lipgloss.Color("#A142F4"),
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 1)
}

// HeaderStyle is used for table headers.
func (s *StyleConfig) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// CellStyle is used for plain table cells.
func (s *StyleConfig) CellStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Padding(0, 1)
}

// ResultStyle colors a build or record result. A nil result (still
// running) uses the secondary text color.
func (s *StyleConfig) ResultStyle(result *string) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(s.TextSecondary)
	if result == nil {
		return style
	}
	switch *result {
	case "succeeded":
		return style.Foreground(s.Succeeded)
	case "partiallySucceeded", "succeededWithIssues":
		return style.Foreground(s.Partial)
	case "failed":
		return style.Foreground(s.Failed)
	case "canceled", "cancelled", "abandoned":
		return style.Foreground(s.Canceled)
	}
	return style
}

// ViewportStyle returns a viewport container lipgloss style using this config
func (s *StyleConfig) ViewportStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextPrimary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
