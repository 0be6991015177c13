package state

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/nhle/theora/internal/model"
)

// CompressedTodos summarizes the todo list for AI prompts.
func (c *Container) CompressedTodos() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var completed, high, upcoming int
	for _, t := range c.todos {
		if t.Completed {
			completed++
			continue
		}
		if t.Priority == model.PriorityHigh {
			high++
		}
		if due, ok := t.Due(); ok && due.After(now) {
			upcoming++
		}
	}
	return fmt.Sprintf("Total todos: %d, Completed: %d, High priority: %d, Upcoming: %d",
		len(c.todos), completed, high, upcoming)
}

// CompressedEvents summarizes the calendar for AI prompts. Recurring events
// always count as upcoming.
func (c *Container) CompressedEvents() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	y, m, d := c.now().Date()
	today := fmt.Sprintf("%04d-%02d-%02d", y, m, d)

	upcoming := 0
	for _, e := range c.events {
		if e.Recurrence != model.RecurrenceNone || e.Date >= today {
			upcoming++
		}
	}
	return fmt.Sprintf("Total events: %d, Upcoming events: %d", len(c.events), upcoming)
}

// CompressedBudget summarizes spending for AI prompts.
func (c *Container) CompressedBudget() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spent := model.TotalSpent(c.transactions)
	return fmt.Sprintf("Budget limit: %s, Total spent: %s, Remaining: %s",
		FormatMoney(c.currency, c.budget.Limit),
		FormatMoney(c.currency, spent),
		FormatMoney(c.currency, c.budget.Limit.Sub(spent)),
	)
}

// Currency returns the symbol used for amounts.
func (c *Container) Currency() string {
	return c.currency
}

// FormatMoney renders d with thousands separators behind symbol, e.g.
// "₦38,000" or "-₦1,250.5".
func FormatMoney(symbol string, d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	if d.IsInteger() {
		return sign + symbol + humanize.Comma(d.IntPart())
	}
	f, _ := d.Round(2).Float64()
	return sign + symbol + humanize.CommafWithDigits(f, 2)
}

// Snapshot is a consistent copy of the whole container.
type Snapshot struct {
	User                 *model.Identity
	UserName             string
	Todos                []model.Todo
	Events               []model.Event
	Transactions         []model.Transaction
	Budget               model.Budget
	Remaining            decimal.Decimal
	Settings             model.Settings
	AIMessages           model.AIMessages
	ChatSessions         []model.ChatSession
	CurrentChatSessionID string
	AIProvider           string
	AIResponseStyle      string
	CustomAIModes        []model.CustomAIMode
	Notifications        []model.Notification
}

// Snapshot copies every field under one read lock.
func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Container) snapshotLocked() Snapshot {
	var user *model.Identity
	if c.user != nil {
		u := *c.user
		user = &u
	}
	return Snapshot{
		User:                 user,
		UserName:             c.userName,
		Todos:                slices.Clone(c.todos),
		Events:               slices.Clone(c.events),
		Transactions:         slices.Clone(c.transactions),
		Budget:               c.budget,
		Remaining:            c.budget.Limit.Sub(model.TotalSpent(c.transactions)),
		Settings:             c.settings,
		AIMessages:           c.aiMessages,
		ChatSessions:         model.CloneSessions(c.chatSessions),
		CurrentChatSessionID: c.currentChatID,
		AIProvider:           c.aiProvider,
		AIResponseStyle:      c.aiResponseStyle,
		CustomAIModes:        slices.Clone(c.customModes),
		Notifications:        slices.Clone(c.notifications),
	}
}
