// Package chat is the terminal view of the current chat session.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/theme"
)

// CloseMsg signals the parent to close the chat view.
type CloseMsg struct{}

// ReplyMsg carries the outcome of a send.
type ReplyMsg struct {
	Reply model.ChatMessage
	Err   error
}

// Model is the chat view. It renders the session it is given and sends new
// messages through the chat service; the container holds the history.
type Model struct {
	chat     *ai.Chat
	session  *model.ChatSession
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	lastErr  error
	width    int
	height   int
}

// New creates a chat view. A nil service shows a configuration hint instead.
func New(chat *ai.Chat, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your tasks, events or budget..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	vp := viewport.New(width-4, max(height-8, 4))
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		chat:     chat,
		input:    ta,
		viewport: vp,
		spinner:  sp,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the chat view.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// SetSession replaces the rendered session, typically after a
// chatSessionsChanged or currentChatSessionChanged event.
func (m *Model) SetSession(s *model.ChatSession) {
	m.session = s
	m.refreshViewport()
}

// Waiting reports whether a reply is outstanding.
func (m Model) Waiting() bool {
	return m.waiting
}

// Update handles messages for the chat view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReplyMsg:
		m.waiting = false
		m.lastErr = msg.Err
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.waiting {
			return m, nil
		}
		return m, func() tea.Msg { return CloseMsg{} }

	case "enter":
		if m.chat == nil || m.waiting {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.waiting = true
		m.lastErr = nil
		m.refreshViewport()
		return m, tea.Batch(m.send(text), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send posts text in the background. The container emits the stored
// messages; ReplyMsg only ends the waiting state.
func (m Model) send(text string) tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		reply, err := chat.Send(context.Background(), text)
		return ReplyMsg{Reply: reply, Err: err}
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if m.session == nil || len(m.session.Messages) == 0 {
		return theme.HelpStyle.Render("Ask me anything about your todos, events or spending.")
	}

	roleStyle := lipgloss.NewStyle().Bold(true)
	userStyle := roleStyle.Foreground(theme.ColorBlue)
	aiStyle := roleStyle.Foreground(theme.ColorGreen)
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite).Width(max(m.width-6, 10))

	var sections []string
	for _, msg := range m.session.Messages {
		label := userStyle.Render("You:")
		if msg.Sender == model.SenderAI {
			label = aiStyle.Render("Theora:")
		}
		sections = append(sections, label, contentStyle.Render(msg.Message), "")
	}

	if m.waiting {
		sections = append(sections, m.spinner.View()+theme.HelpStyle.Render(" thinking"))
	} else if m.lastErr != nil {
		sections = append(sections, theme.NotificationStyle(model.NotificationError).Render("provider unavailable"))
	}
	return strings.Join(sections, "\n")
}

// View renders the chat view.
func (m Model) View() string {
	if m.chat == nil {
		return theme.PanelStyle.
			Width(max(m.width-4, 0)).
			Height(max(m.height-4, 0)).
			Render(theme.MutedStyle.Render(
				"Chat requires an AI provider key.\n\n" +
					"Set THEORA_ANTHROPIC_API_KEY or THEORA_GEMINI_API_KEY,\n" +
					"or store one with `theora key set`.\n\n" +
					"Press Esc to go back."))
	}

	title := "Chat"
	if m.session != nil {
		title = m.session.Title
	}
	separator := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-6, 80), 0)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		theme.PanelTitleStyle.MarginBottom(1).Render(title),
		m.viewport.View(),
		separator,
		m.input.View(),
	)
	return theme.FocusedPanelStyle.Width(max(m.width-4, 0)).Render(content)
}

// SetSize updates the chat view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.viewport.Width = width - 4
	m.viewport.Height = max(height-8, 4)
	m.refreshViewport()
}
