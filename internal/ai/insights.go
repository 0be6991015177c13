package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

// Static texts shown when a slot cannot be generated. They are never cached,
// so the next request tries the provider again.
var fallbacks = map[model.AISlot]string{
	model.SlotDailyBrief:           "Your daily brief isn't available right now. Start with your highest-priority task.",
	model.SlotBudgetInsight:        "Budget insights are unavailable right now. Keep an eye on your remaining budget.",
	model.SlotTimeManagementAdvice: "Time management advice is unavailable right now. Try tackling one task at a time.",
}

// Fallback returns the static text for slot.
func Fallback(slot model.AISlot) string {
	return fallbacks[slot]
}

// Insights fills the derived-content cache on demand.
type Insights struct {
	state *state.Container
	gen   TextGenerator
	now   func() time.Time
	log   zerolog.Logger
}

// NewInsights creates an insight generator backed by gen.
func NewInsights(st *state.Container, gen TextGenerator, log zerolog.Logger) *Insights {
	return &Insights{
		state: st,
		gen:   gen,
		now:   time.Now,
		log:   log.With().Str("component", "insights").Logger(),
	}
}

// DailyBrief returns the cached brief or generates one.
func (in *Insights) DailyBrief(ctx context.Context) (string, error) {
	return in.fill(ctx, model.SlotDailyBrief, in.dailyBriefPrompt, 250)
}

// BudgetInsight returns the cached budget insight or generates one.
func (in *Insights) BudgetInsight(ctx context.Context) (string, error) {
	return in.fill(ctx, model.SlotBudgetInsight, in.budgetPrompt, 200)
}

// TimeManagementAdvice returns the cached advice or generates it.
func (in *Insights) TimeManagementAdvice(ctx context.Context) (string, error) {
	return in.fill(ctx, model.SlotTimeManagementAdvice, in.timeManagementPrompt, 300)
}

// Get dispatches on slot.
func (in *Insights) Get(ctx context.Context, slot model.AISlot) (string, error) {
	switch slot {
	case model.SlotDailyBrief:
		return in.DailyBrief(ctx)
	case model.SlotBudgetInsight:
		return in.BudgetInsight(ctx)
	case model.SlotTimeManagementAdvice:
		return in.TimeManagementAdvice(ctx)
	}
	return "", fmt.Errorf("unknown slot %q", slot)
}

// fill serves slot from the cache, or generates and stores it. The version
// read before generating guards against storing text derived from data
// that changed while the provider was working.
func (in *Insights) fill(ctx context.Context, slot model.AISlot, prompt func(state.Snapshot) string, maxTokens int) (string, error) {
	if text, ok := in.state.AIMessages().Get(slot); ok {
		return text, nil
	}

	version := in.state.AIMessageVersion(slot)
	snap := in.state.Snapshot()

	text, err := in.gen.Generate(ctx, prompt(snap), Options{
		MaxTokens: maxTokens,
		System:    SystemPrompt(in.state),
	})
	if err != nil {
		in.log.Warn().Err(err).Str("slot", string(slot)).Msg("using fallback text")
		return Fallback(slot), err
	}

	if !in.state.CacheAIMessage(slot, text, version) {
		in.log.Debug().Str("slot", string(slot)).Msg("discarded stale generation")
	}
	if cached, ok := in.state.AIMessages().Get(slot); ok {
		return cached, nil
	}
	return text, nil
}

func (in *Insights) dailyBriefPrompt(snap state.Snapshot) string {
	now := in.now()
	var urgent []model.Todo
	for _, t := range snap.Todos {
		if !t.Completed && t.Priority == model.PriorityHigh {
			urgent = append(urgent, t)
		}
	}
	today := in.state.EventsForDateRange(now, now)
	currency := in.state.Currency()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a brief, motivational daily game plan for %s.\n\n", snap.UserName)
	sb.WriteString("Here's the user's situation:\n")
	fmt.Fprintf(&sb, "- Budget: %s remaining.\n", state.FormatMoney(currency, snap.Remaining))
	fmt.Fprintf(&sb, "- Urgent tasks (%d):\n", len(urgent))
	for _, t := range urgent {
		due := "no date"
		if d, ok := t.Due(); ok {
			due = d.Format("Mon Jan 2")
		}
		fmt.Fprintf(&sb, "  - %q (due: %s)\n", t.Title, due)
	}
	fmt.Fprintf(&sb, "- Today's events (%d):\n", len(today))
	for _, e := range today {
		at := e.Time
		if at == "" {
			at = "all day"
		}
		fmt.Fprintf(&sb, "  - %q at %s\n", e.Title, at)
	}
	sb.WriteString("\nPoint out the most critical item for today and what to focus on first. ")
	sb.WriteString("Keep it concise and encouraging (2-3 sentences).")
	return sb.String()
}

func (in *Insights) budgetPrompt(snap state.Snapshot) string {
	currency := in.state.Currency()
	spent := model.TotalSpent(snap.Transactions)

	recent := snap.Transactions
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	parts := make([]string, 0, len(recent))
	for _, t := range recent {
		parts = append(parts, fmt.Sprintf("%s on %s", state.FormatMoney(currency, t.Amount), t.Category))
	}

	return fmt.Sprintf(
		"A user has spent %s out of their %s budget. Recent transactions: %s.\n\n"+
			"Provide brief spending insights and suggestions for %s.",
		state.FormatMoney(currency, spent),
		state.FormatMoney(currency, snap.Budget.Limit),
		strings.Join(parts, ", "),
		snap.UserName,
	)
}

type agendaItem struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Priority   string `json:"priority,omitempty"`
	DueDate    string `json:"dueDate,omitempty"`
	Completed  bool   `json:"completed,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Recurrence string `json:"recurrence,omitempty"`
}

func (in *Insights) timeManagementPrompt(snap state.Snapshot) string {
	items := make([]agendaItem, 0, len(snap.Todos)+len(snap.Events))
	for _, t := range snap.Todos {
		items = append(items, agendaItem{
			Type: "todo", Title: t.Title, Priority: string(t.Priority),
			DueDate: t.DueDate, Completed: t.Completed,
		})
	}
	for _, e := range snap.Events {
		items = append(items, agendaItem{
			Type: "event", Title: e.Title, Date: e.Date,
			Time: e.Time, Recurrence: string(e.Recurrence),
		})
	}
	agenda, _ := json.MarshalIndent(items, "", "  ")

	return "Provide concise time management advice (about 3 paragraphs) based on the following current tasks and events:\n\n" +
		string(agenda) +
		"\n\nIdentify the key priorities, suggest practical steps for today and this week, " +
		"and mention how Theora can help."
}
