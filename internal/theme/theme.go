// Package theme holds the terminal color palette and shared styles.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/nhle/theora/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps an unfocused dashboard panel.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// FocusedPanelStyle wraps the panel that receives keyboard input.
var FocusedPanelStyle = PanelStyle.
	BorderForeground(ColorBlue)

// PanelTitleStyle renders panel headings.
var PanelTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// MutedStyle renders secondary text such as dates and completed items.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// PriorityStyle returns a color-coded style for a todo priority.
func PriorityStyle(p model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch p {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// NotificationStyle returns a color-coded style for a notification type.
func NotificationStyle(typ string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch typ {
	case model.NotificationError:
		return base.Foreground(ColorRed)
	case model.NotificationSuccess:
		return base.Foreground(ColorGreen)
	case model.NotificationBudget, model.NotificationTransaction:
		return base.Foreground(ColorOrange)
	case model.NotificationTodo, model.NotificationEvent:
		return base.Foreground(ColorBlue)
	case model.NotificationInfo:
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}

// BudgetStyle colors the remaining amount by how much of limit is left:
// red when overspent, orange under a quarter, green otherwise.
func BudgetStyle(remaining, limit decimal.Decimal) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case remaining.IsNegative():
		return base.Foreground(ColorRed)
	case limit.IsPositive() && remaining.Mul(decimal.NewFromInt(4)).LessThan(limit):
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGreen)
	}
}
