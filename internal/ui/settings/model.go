// Package settings is the preferences form: AI provider and response
// style, feature toggles, and the spending limit.
package settings

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/theme"
)

// SavedMsg carries the submitted preferences.
type SavedMsg struct {
	Provider string
	Style    string
	Settings model.SettingsPatch
	Budget   model.BudgetPatch
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

type formBindings struct {
	provider      string
	style         string
	notifications bool
	hustle        bool
	sapa          bool
	limit         string
}

// Model is the Bubble Tea model of the preferences form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	currency string
	width    int
	height   int
}

// New creates an idle form.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Active reports whether the form is open.
func (m Model) Active() bool {
	return m.form != nil
}

// Start opens the form prefilled from snap.
func (m *Model) Start(snap state.Snapshot, currency string) tea.Cmd {
	m.currency = currency
	*m.fb = formBindings{
		provider:      snap.AIProvider,
		style:         snap.AIResponseStyle,
		notifications: snap.Settings.Notifications,
		hustle:        snap.Settings.HustleMode,
		sapa:          snap.Settings.SapaMode,
		limit:         snap.Budget.Limit.String(),
	}
	m.form = m.build(snap.CustomAIModes)
	return m.form.Init()
}

// Update forwards msg to the open form and reports its outcome.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		out := m.submit()
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the open form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Settings")
	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build(custom []model.CustomAIMode) *huh.Form {
	providers := make([]huh.Option[string], 0, len(model.Providers))
	for _, p := range model.Providers {
		providers = append(providers, huh.NewOption(p, p))
	}

	styles := make([]huh.Option[string], 0, len(model.BuiltinStyles)+len(custom))
	for _, s := range model.BuiltinStyles {
		styles = append(styles, huh.NewOption(s, s))
	}
	for _, c := range custom {
		styles = append(styles, huh.NewOption(c.Name+" (custom)", c.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("AI provider").
				Options(providers...).
				Value(&m.fb.provider),
			huh.NewSelect[string]().
				Title("Response style").
				Options(styles...).
				Value(&m.fb.style),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Notifications").
				Value(&m.fb.notifications),
			huh.NewConfirm().
				Title("Hustle mode").
				Value(&m.fb.hustle),
			huh.NewConfirm().
				Title("Sapa mode").
				Description("Tight-budget tone for money advice").
				Value(&m.fb.sapa),
			huh.NewInput().
				Title(fmt.Sprintf("Spending limit (%s)", m.currency)).
				Value(&m.fb.limit).
				Validate(validateAmount),
		),
	).WithWidth(min(max(m.width-4, 40), 100)).WithHeight(max(m.height-4, 10))
}

func (m Model) submit() tea.Msg {
	fb := *m.fb
	out := SavedMsg{
		Provider: fb.provider,
		Style:    fb.style,
		Settings: model.SettingsPatch{
			Notifications: &fb.notifications,
			HustleMode:    &fb.hustle,
			SapaMode:      &fb.sapa,
		},
	}
	if limit, err := decimal.NewFromString(strings.TrimSpace(fb.limit)); err == nil {
		out.Budget.Limit = &limit
	}
	return out
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
