package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PagerModel is a full-screen scrollable view of a block of text, used for
// console logs that do not fit on one screen.
type PagerModel struct {
	title    string
	content  string
	styles   *StyleConfig
	viewport viewport.Model
	ready    bool
}

// NewPagerModel creates a pager for content. The viewport is sized on the
// first WindowSizeMsg.
func NewPagerModel(title, content string, styles *StyleConfig) PagerModel {
	if styles == nil {
		styles = DefaultStyles()
	}
	return PagerModel{title: title, content: content, styles: styles}
}

func (m PagerModel) Init() tea.Cmd {
	return nil
}

func (m PagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView())
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m PagerModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.viewport.View(), m.footerView())
}

func (m PagerModel) headerView() string {
	return m.styles.TitleStyle().Render(m.title)
}

func (m PagerModel) footerView() string {
	percent := 100.0
	if m.ready {
		percent = m.viewport.ScrollPercent() * 100
	}
	return m.styles.HelpStyle().Render(fmt.Sprintf("%3.0f%%  ↑/↓ scroll • q quit", percent))
}

// Page shows content in the full-screen pager until the user quits.
func Page(title, content string) error {
	p := tea.NewProgram(NewPagerModel(title, content, nil), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
