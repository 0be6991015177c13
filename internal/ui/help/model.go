// Package help renders the keyboard shortcut overlay.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/theora/internal/keys"
	"github.com/nhle/theora/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// ShortView renders the one-line hint shown in the status bar.
func (m Model) ShortView() string {
	m.help.ShowAll = false
	return m.help.View(m.keys)
}

// View renders the full overlay.
func (m Model) View() string {
	title := theme.PanelTitleStyle.MarginBottom(1).Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.help.View(m.keys))
	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
