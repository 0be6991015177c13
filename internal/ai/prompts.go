package ai

import (
	"fmt"
	"strings"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

const audience = "for Nigerian students and young adults"

// StyleInstruction returns the persona instruction for a resolved style.
// A custom mode's instruction is used verbatim.
func StyleInstruction(style string, custom *model.CustomAIMode, userName string) string {
	if custom != nil {
		return custom.Instruction
	}
	switch style {
	case model.StyleSupportive:
		return fmt.Sprintf("As Theora, a supportive AI assistant and financial copilot %s. Address the user as %s. Provide encouraging, helpful, and culturally relevant advice.", audience, userName)
	case model.StyleDirect:
		return fmt.Sprintf("As Theora, a direct and concise AI assistant and financial copilot %s. Address the user as %s. Provide straightforward, actionable, and culturally relevant advice.", audience, userName)
	case model.StyleConcise:
		return fmt.Sprintf("As Theora, a concise AI assistant and financial copilot %s. Address the user as %s. Provide brief, to-the-point, and actionable advice.", audience, userName)
	case model.StyleSapa:
		return fmt.Sprintf("As Theora, your financial copilot, I understand say money no dey. Address the user as %s. I go give you advice for pidgin English, make we manage this sapa together. Focus on saving, finding small hustles, and cutting unnecessary spending.", userName)
	case model.StyleHustle:
		return fmt.Sprintf("As Theora, your productivity and financial copilot, I dey for your back as you dey hustle. Address the user as %s. I go give you advice for pidgin English, make you fit achieve your goals. Focus on maximizing productivity and smart financial decisions for growth.", userName)
	default:
		return fmt.Sprintf("As Theora, a helpful AI assistant and financial copilot %s. Address the user as %s. Provide clear, standard, and culturally relevant advice.", audience, userName)
	}
}

// Summary is the compact view of user data attached to every prompt.
type Summary struct {
	Todos  string
	Events string
	Budget string
}

// Summarize collects the compressed summaries from the container.
func Summarize(st *state.Container) Summary {
	return Summary{
		Todos:  st.CompressedTodos(),
		Events: st.CompressedEvents(),
		Budget: st.CompressedBudget(),
	}
}

// SystemPrompt combines the active persona with the user's data summary.
func SystemPrompt(st *state.Container) string {
	style, custom := st.ResolvedStyle()
	sum := Summarize(st)

	var sb strings.Builder
	sb.WriteString(StyleInstruction(style, custom, st.UserName()))
	sb.WriteString("\n\nUser's current state:\n")
	fmt.Fprintf(&sb, "- Todos: %s\n", sum.Todos)
	fmt.Fprintf(&sb, "- Events: %s\n", sum.Events)
	fmt.Fprintf(&sb, "- Budget: %s\n", sum.Budget)
	return sb.String()
}
