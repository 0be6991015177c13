// Package dashboard is the terminal overview of the signed-in user's data.
// It observes the event bus and re-renders from container snapshots.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/keys"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/theme"
	"github.com/nhle/theora/internal/ui"
	chatview "github.com/nhle/theora/internal/ui/chat"
	helpview "github.com/nhle/theora/internal/ui/help"
	"github.com/nhle/theora/internal/ui/settings"
	"github.com/nhle/theora/internal/ui/todoform"
)

// Panel identifies a focusable list.
type Panel int

const (
	PanelTodos Panel = iota
	PanelEvents
	PanelNotifications
	panelCount
)

type viewState int

const (
	viewDashboard viewState = iota
	viewChat
	viewHelp
	viewTodoForm
	viewSettings
)

// upcomingDays is how far ahead the events panel looks.
const upcomingDays = 7

// listLimit caps the rows shown per list panel.
const listLimit = 8

// insightMsg carries a generated (or fallback) insight.
type insightMsg struct {
	slot model.AISlot
	text string
	err  error
}

// Notifier requests an immediate notification.
type Notifier interface {
	Trigger()
}

// Deps are the collaborators of the dashboard. Insights, Chat and Notifier
// may be nil when no AI provider is configured.
type Deps struct {
	State    *state.Container
	Bus      *events.Bus
	Insights *ai.Insights
	Chat     *ai.Chat
	Notifier Notifier
}

// Model is the root Bubble Tea model of the dashboard.
type Model struct {
	deps     Deps
	keys     *keys.KeyMap
	layout   ui.Layout
	help     helpview.Model
	chat     chatview.Model
	form     todoform.Model
	prefs    settings.Model
	spinner  spinner.Model
	watcher  *watcher
	now      func() time.Time
	snap     state.Snapshot
	upcoming []model.Event
	fallback map[model.AISlot]string
	loading  map[model.AISlot]bool
	focus    Panel
	cursor   [panelCount]int
	view     viewState
	status   string
	ready    bool
}

// New creates the dashboard and subscribes it to the bus. Call Close once
// the program exits.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		deps:     deps,
		keys:     k,
		layout:   ui.NewLayout(100, 30),
		help:     helpview.New(k, 100, 28),
		chat:     chatview.New(deps.Chat, 100, 28),
		form:     todoform.New(100, 28),
		prefs:    settings.New(100, 28),
		spinner:  sp,
		watcher:  watch(deps.Bus),
		now:      time.Now,
		fallback: make(map[model.AISlot]string),
		loading:  make(map[model.AISlot]bool),
	}
	m.refresh()
	return m
}

// Close unsubscribes the dashboard from the bus.
func (m Model) Close() {
	m.watcher.stop()
}

// Init starts listening for events and fills empty insight slots.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.watcher.next(), m.chat.Init()}
	for _, slot := range model.AISlots {
		cmds = append(cmds, m.loadInsight(slot))
	}
	return tea.Batch(cmds...)
}

func (m *Model) refresh() {
	m.snap = m.deps.State.Snapshot()
	now := m.now()
	m.upcoming = m.deps.State.EventsForDateRange(now, now.AddDate(0, 0, upcomingDays))
	m.chat.SetSession(m.deps.State.CurrentChatSession())

	for p, n := range [panelCount]int{len(m.snap.Todos), len(m.upcoming), len(m.snap.Notifications)} {
		m.cursor[p] = max(min(m.cursor[p], n-1), 0)
	}
}

// loadInsight generates slot in the background unless it is cached or
// already being generated.
func (m *Model) loadInsight(slot model.AISlot) tea.Cmd {
	if m.deps.Insights == nil || m.loading[slot] {
		return nil
	}
	if _, ok := m.snap.AIMessages.Get(slot); ok {
		return nil
	}
	m.loading[slot] = true

	insights := m.deps.Insights
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		text, err := insights.Get(context.Background(), slot)
		return insightMsg{slot: slot, text: text, err: err}
	})
}

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.help.SetSize(msg.Width, m.layout.ContentHeight())
		m.chat.SetSize(msg.Width, m.layout.ContentHeight())
		m.form.SetSize(msg.Width, m.layout.ContentHeight())
		m.prefs.SetSize(msg.Width, m.layout.ContentHeight())
		return m, nil

	case StateChangedMsg:
		m.refresh()
		var cmd tea.Cmd
		if msg.Topic == state.AIMessagesChanged || msg.Topic == state.StateLoaded {
			// An invalidated slot is regenerated right away.
			var cmds []tea.Cmd
			for _, slot := range model.AISlots {
				cmds = append(cmds, m.loadInsight(slot))
			}
			cmd = tea.Batch(cmds...)
		}
		return m, tea.Batch(m.watcher.next(), cmd)

	case insightMsg:
		m.loading[msg.slot] = false
		if msg.err != nil {
			m.fallback[msg.slot] = msg.text
		} else {
			delete(m.fallback, msg.slot)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.anyLoading() {
			break
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.view == viewChat {
			var chatCmd tea.Cmd
			m.chat, chatCmd = m.chat.Update(msg)
			cmd = tea.Batch(cmd, chatCmd)
		}
		return m, cmd

	case chatview.CloseMsg, todoform.CancelMsg, settings.CancelMsg:
		m.view = viewDashboard
		return m, nil

	case todoform.CreatedMsg:
		m.view = viewDashboard
		_, err := m.deps.State.AddTodo(msg.Todo)
		m.setStatus(err, "Todo added")
		return m, nil

	case todoform.UpdatedMsg:
		m.view = viewDashboard
		m.setStatus(m.deps.State.UpdateTodo(msg.ID, msg.Patch), "Todo updated")
		return m, nil

	case settings.SavedMsg:
		m.view = viewDashboard
		m.setStatus(m.applySettings(msg), "Settings saved")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

// forward hands msg to the open sub-view.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case viewChat:
		m.chat, cmd = m.chat.Update(msg)
	case viewTodoForm:
		m.form, cmd = m.form.Update(msg)
	case viewSettings:
		m.prefs, cmd = m.prefs.Update(msg)
	}
	return m, cmd
}

func (m *Model) setStatus(err error, ok string) {
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = ok
}

func (m Model) applySettings(msg settings.SavedMsg) error {
	st := m.deps.State
	if err := st.SetAIProvider(msg.Provider); err != nil {
		return err
	}
	st.SetAIResponseStyle(msg.Style)
	st.UpdateSettings(msg.Settings)
	if msg.Budget.Limit != nil {
		return st.SetBudget(msg.Budget)
	}
	return nil
}

func (m Model) anyLoading() bool {
	for _, l := range m.loading {
		if l {
			return true
		}
	}
	return false
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewTodoForm, viewSettings:
		if key.Matches(msg, m.keys.Back) {
			m.view = viewDashboard
			return m, nil
		}
		return m.forward(msg)
	case viewChat:
		return m.forward(msg)
	case viewHelp:
		m.view = viewDashboard
		return m, nil
	}

	m.status = ""
	st := m.deps.State
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.view = viewHelp

	case key.Matches(msg, m.keys.NextPanel):
		m.focus = (m.focus + 1) % panelCount

	case key.Matches(msg, m.keys.Down):
		if m.cursor[m.focus] < m.panelLen(m.focus)-1 {
			m.cursor[m.focus]++
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor[m.focus] > 0 {
			m.cursor[m.focus]--
		}

	case key.Matches(msg, m.keys.Add):
		if m.snap.User == nil {
			m.status = "Sign in to add todos"
			break
		}
		m.view = viewTodoForm
		return m, m.form.StartCreate()

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selectedTodo(); ok && m.focus == PanelTodos {
			m.view = viewTodoForm
			return m, m.form.StartEdit(t)
		}

	case key.Matches(msg, m.keys.Settings):
		m.view = viewSettings
		return m, m.prefs.Start(m.snap, st.Currency())

	case key.Matches(msg, m.keys.Toggle):
		switch m.focus {
		case PanelTodos:
			if t, ok := m.selectedTodo(); ok {
				done := !t.Completed
				_ = st.UpdateTodo(t.ID, model.TodoPatch{Completed: &done})
			}
		case PanelNotifications:
			if n, ok := m.selectedNotification(); ok {
				st.MarkNotificationRead(n.ID)
			}
		}

	case key.Matches(msg, m.keys.Delete):
		switch m.focus {
		case PanelTodos:
			if t, ok := m.selectedTodo(); ok {
				st.DeleteTodo(t.ID)
			}
		case PanelEvents:
			if i := m.cursor[PanelEvents]; i < len(m.upcoming) {
				st.DeleteEvent(m.upcoming[i].ID)
			}
		}

	case key.Matches(msg, m.keys.MarkRead):
		st.MarkAllNotificationsRead()

	case key.Matches(msg, m.keys.Notify):
		if m.deps.Notifier != nil {
			m.deps.Notifier.Trigger()
		}

	case key.Matches(msg, m.keys.Refresh):
		// Clearing a slot emits aiMessagesChanged, which regenerates it.
		for _, slot := range model.AISlots {
			st.SetAIMessage(slot, "")
		}

	case key.Matches(msg, m.keys.Chat):
		m.view = viewChat
		return m, m.chat.Init()
	}
	return m, nil
}

func (m Model) panelLen(p Panel) int {
	switch p {
	case PanelTodos:
		return len(m.snap.Todos)
	case PanelEvents:
		return len(m.upcoming)
	case PanelNotifications:
		return len(m.snap.Notifications)
	}
	return 0
}

func (m Model) selectedTodo() (model.Todo, bool) {
	i := m.cursor[PanelTodos]
	if i >= len(m.snap.Todos) {
		return model.Todo{}, false
	}
	return m.snap.Todos[i], true
}

func (m Model) selectedNotification() (model.Notification, bool) {
	i := m.cursor[PanelNotifications]
	if i >= len(m.snap.Notifications) {
		return model.Notification{}, false
	}
	return m.snap.Notifications[i], true
}

// View renders the dashboard.
func (m Model) View() string {
	var content string
	switch m.view {
	case viewChat:
		content = m.chat.View()
	case viewHelp:
		content = m.help.View()
	case viewTodoForm:
		content = m.form.View()
	case viewSettings:
		content = m.prefs.View()
	default:
		content = m.renderPanels()
	}

	return m.layout.RenderWithFrame(
		m.layout.RenderHeader("Theora", m.headerStatus()),
		content,
		m.layout.RenderStatusBar(m.statusLine()),
	)
}

func (m Model) statusLine() string {
	if m.status != "" {
		return m.status
	}
	return m.help.ShortView()
}

func (m Model) headerStatus() string {
	if m.snap.User == nil {
		return "signed out"
	}
	unread := model.UnreadCount(m.snap.Notifications)
	return fmt.Sprintf("%s · %s left · %d unread",
		m.snap.UserName,
		state.FormatMoney(m.deps.State.Currency(), m.snap.Remaining),
		unread,
	)
}

func (m Model) renderPanels() string {
	widths := m.layout.Columns(3)
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.panel(PanelTodos, widths[0], "Todos", m.todoRows()),
		m.panel(PanelEvents, widths[0], "Next 7 days", m.eventRows()),
	)
	middle := lipgloss.JoinVertical(lipgloss.Left,
		m.box(widths[1], "Budget", m.budgetText()),
		m.box(widths[1], "Daily brief", m.insightText(model.SlotDailyBrief)),
		m.box(widths[1], "Budget insight", m.insightText(model.SlotBudgetInsight)),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.panel(PanelNotifications, widths[2], "Notifications", m.notificationRows()),
		m.box(widths[2], "Time management", m.insightText(model.SlotTimeManagementAdvice)),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, middle, right)
}

func (m Model) panel(p Panel, width int, title string, rows []string) string {
	if len(rows) == 0 {
		rows = []string{theme.MutedStyle.Render("nothing here")}
	}
	start := max(m.cursor[p]-listLimit+1, 0)
	end := min(start+listLimit, len(rows))

	lines := []string{theme.PanelTitleStyle.Render(title)}
	for i := start; i < end; i++ {
		if m.focus == p && i == m.cursor[p] && m.panelLen(p) > 0 {
			lines = append(lines, theme.SelectedItemStyle.Render(rows[i]))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(rows[i]))
		}
	}

	style := theme.PanelStyle
	if m.focus == p {
		style = theme.FocusedPanelStyle
	}
	return style.Width(max(width-2, 0)).Render(strings.Join(lines, "\n"))
}

func (m Model) box(width int, title, body string) string {
	return theme.PanelStyle.Width(max(width-2, 0)).Render(
		theme.PanelTitleStyle.Render(title) + "\n" + body,
	)
}

func (m Model) todoRows() []string {
	rows := make([]string, 0, len(m.snap.Todos))
	for _, t := range m.snap.Todos {
		check := "[ ]"
		title := t.Title
		if t.Completed {
			check = "[x]"
			title = theme.MutedStyle.Render(title)
		}
		rows = append(rows, fmt.Sprintf("%s %s %s", check, theme.PriorityStyle(t.Priority).Render("●"), title))
	}
	return rows
}

func (m Model) eventRows() []string {
	rows := make([]string, 0, len(m.upcoming))
	for _, e := range m.upcoming {
		when := e.Date
		if e.Time != "" {
			when += " " + e.Time
		}
		rows = append(rows, theme.MutedStyle.Render(when)+" "+e.Title)
	}
	return rows
}

func (m Model) notificationRows() []string {
	rows := make([]string, 0, len(m.snap.Notifications))
	for _, n := range m.snap.Notifications {
		marker := " "
		if !n.Read {
			marker = theme.NotificationStyle(n.Type).Render("•")
		}
		rows = append(rows, fmt.Sprintf("%s %s %s", marker, n.Message,
			theme.MutedStyle.Render(humanize.RelTime(n.Timestamp, m.now(), "ago", "from now"))))
	}
	return rows
}

func (m Model) budgetText() string {
	currency := m.deps.State.Currency()
	remaining := theme.BudgetStyle(m.snap.Remaining, m.snap.Budget.Limit).
		Render(state.FormatMoney(currency, m.snap.Remaining))
	return fmt.Sprintf("Remaining %s of %s\n%s",
		remaining,
		state.FormatMoney(currency, m.snap.Budget.Limit),
		theme.MutedStyle.Render(fmt.Sprintf("%d transactions", len(m.snap.Transactions))),
	)
}

func (m Model) insightText(slot model.AISlot) string {
	if text, ok := m.snap.AIMessages.Get(slot); ok {
		return text
	}
	if m.loading[slot] {
		return m.spinner.View() + theme.HelpStyle.Render(" generating")
	}
	if text, ok := m.fallback[slot]; ok {
		return theme.MutedStyle.Render(text)
	}
	if m.deps.Insights == nil {
		return theme.MutedStyle.Render("No AI provider configured.")
	}
	return theme.MutedStyle.Render("Press r to generate.")
}
