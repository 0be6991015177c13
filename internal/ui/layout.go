// Package ui holds the layout helpers shared by the terminal views.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/theora/internal/theme"
)

// Layout manages the terminal frame dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// Columns splits the width into n columns; the last one absorbs the
// remainder.
func (l Layout) Columns(n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	each := l.Width / n
	for i := range widths {
		widths[i] = each
	}
	widths[n-1] += l.Width - each*n
	return widths
}

// RenderHeader renders the top bar with a title on the left and status on
// the right.
func (l Layout) RenderHeader(title, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.Align(lipgloss.Right).Render(status)

	gap := max(l.Width-lipgloss.Width(titleRendered)-lipgloss.Width(statusRendered), 0)
	filler := theme.HeaderStyle.UnsetPadding().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, titleRendered, filler, statusRendered)
}

// RenderStatusBar renders the bottom bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := max(l.Width-lipgloss.Width(rendered), 0)
	filler := theme.StatusBarStyle.UnsetPadding().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
