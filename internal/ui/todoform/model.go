// Package todoform is the create/edit form for todos.
package todoform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/theme"
)

// CreatedMsg is dispatched when the form submits a new todo.
type CreatedMsg struct {
	Todo model.Todo
}

// UpdatedMsg is dispatched when the form submits changes to an existing todo.
type UpdatedMsg struct {
	ID    string
	Patch model.TodoPatch
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so that huh's Value()
// pointers stay valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	category    string
	dueDate     string
	completed   bool
}

// Model is the Bubble Tea model of the form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	editID string
	width  int
	height int
}

// New creates an idle form.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium},
		width:  width,
		height: height,
	}
}

// Active reports whether a form is open.
func (m Model) Active() bool {
	return m.form != nil
}

// StartCreate opens an empty form.
func (m *Model) StartCreate() tea.Cmd {
	m.editID = ""
	*m.fb = formBindings{priority: model.PriorityMedium}
	m.form = m.build(false)
	return m.form.Init()
}

// StartEdit opens the form prefilled with t.
func (m *Model) StartEdit(t model.Todo) tea.Cmd {
	m.editID = t.ID
	*m.fb = formBindings{
		title:       t.Title,
		description: t.Description,
		priority:    t.Priority,
		category:    t.Category,
		dueDate:     t.DueDate,
		completed:   t.Completed,
	}
	m.form = m.build(true)
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

	titleText := "New Todo"
	if m.editID != "" {
		titleText = "Edit Todo"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render(titleText) + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build(edit bool) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(
				huh.NewOption("High", model.PriorityHigh),
				huh.NewOption("Medium", model.PriorityMedium),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Category").
			Placeholder("school, work, personal... (optional)").
			Value(&m.fb.category),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
	}
	if edit {
		fields = append(fields, huh.NewConfirm().
			Title("Completed?").
			Value(&m.fb.completed))
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

func (m Model) submit() tea.Msg {
	fb := *m.fb
	fb.title = strings.TrimSpace(fb.title)
	fb.dueDate = strings.TrimSpace(fb.dueDate)

	if m.editID == "" {
		return CreatedMsg{Todo: model.Todo{
			Title:       fb.title,
			Description: fb.description,
			Priority:    fb.priority,
			Category:    strings.TrimSpace(fb.category),
			DueDate:     fb.dueDate,
		}}
	}
	category := strings.TrimSpace(fb.category)
	return UpdatedMsg{ID: m.editID, Patch: model.TodoPatch{
		Title:       &fb.title,
		Description: &fb.description,
		Priority:    &fb.priority,
		Category:    &category,
		DueDate:     &fb.dueDate,
		Completed:   &fb.completed,
	}}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, ok := model.ParseDateTime(s); !ok {
		return fmt.Errorf("invalid date, use YYYY-MM-DD")
	}
	return nil
}
