package ai

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

// FallbackNotification is used when no notification could be generated.
const FallbackNotification = "Stay productive! Theora is here to help."

// Composer writes short proactive notifications about the user's data.
type Composer struct {
	gen      TextGenerator
	currency string
	pick     func(n int) int
	log      zerolog.Logger
}

// NewComposer creates a composer. Topics and items are chosen at random.
func NewComposer(gen TextGenerator, currency string, log zerolog.Logger) *Composer {
	return &Composer{
		gen:      gen,
		currency: currency,
		pick:     rand.IntN,
		log:      log.With().Str("component", "composer").Logger(),
	}
}

// WithPicker replaces the random choice, returning c.
func (c *Composer) WithPicker(pick func(n int) int) *Composer {
	c.pick = pick
	return c
}

type candidate struct {
	typ    string
	prompt string
}

// candidates lists one prompt per topic that has data, plus a general tip.
func (c *Composer) candidates(snap state.Snapshot) []candidate {
	remaining := state.FormatMoney(c.currency, snap.Remaining)
	about := fmt.Sprintf("Context: user %s has %d tasks, %d events. Remaining budget: %s.",
		snap.UserName, len(snap.Todos), len(snap.Events), remaining)

	var out []candidate
	if n := len(snap.Todos); n > 0 {
		t := snap.Todos[c.pick(n)]
		out = append(out, candidate{model.NotificationTodo, fmt.Sprintf(
			"Write a short, direct notification (1-2 sentences) for %s about this task: %q (priority: %s). Reference their budget (%s) or task count (%d). Be specific. %s",
			snap.UserName, t.Title, t.Priority, remaining, n, about)})
	}
	if n := len(snap.Events); n > 0 {
		e := snap.Events[c.pick(n)]
		out = append(out, candidate{model.NotificationEvent, fmt.Sprintf(
			"Write a short, direct notification (1-2 sentences) for %s for this event: %q on %s. State how much budget is left (%s) and remind them to plan accordingly. %s",
			snap.UserName, e.Title, e.Date, remaining, about)})
	}
	if snap.Budget.Limit.IsPositive() {
		out = append(out, candidate{model.NotificationBudget, fmt.Sprintf(
			"Write a short, direct notification (1-2 sentences) for %s about their budget. State they have %s left. Mention their %d tasks as something to focus on. %s",
			snap.UserName, remaining, len(snap.Todos), about)})
	}
	if n := len(snap.Transactions); n > 0 {
		t := snap.Transactions[c.pick(n)]
		out = append(out, candidate{model.NotificationTransaction, fmt.Sprintf(
			"Write a short, direct notification (1-2 sentences) for %s commenting on a transaction: %s on %s. Give a brief opinion on this spending and state their remaining budget (%s). %s",
			snap.UserName, state.FormatMoney(c.currency, t.Amount), t.Category, remaining, about)})
	}
	out = append(out, candidate{model.NotificationGeneral, fmt.Sprintf(
		"Write a short, motivational tip (1-2 sentences) for %s. Reference one piece of user data: remaining budget (%s), number of tasks (%d), or number of events (%d). %s",
		snap.UserName, remaining, len(snap.Todos), len(snap.Events), about)})
	return out
}

// Compose picks a topic and generates a notification for it. On failure it
// returns FallbackNotification typed general, together with the error.
func (c *Composer) Compose(ctx context.Context, snap state.Snapshot) (message, typ string, err error) {
	options := c.candidates(snap)
	chosen := options[c.pick(len(options))]

	message, err = c.gen.Generate(ctx, chosen.prompt, Options{MaxTokens: 80})
	if err != nil || message == "" {
		c.log.Debug().Err(err).Str("topic", chosen.typ).Msg("notification generation failed")
		return FallbackNotification, model.NotificationGeneral, err
	}
	return message, chosen.typ, nil
}
