package state

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/store"
)

// AddTransaction appends tx. Id, creation time and date default to generated
// values. Both transactionsChanged and budgetChanged are emitted because the
// remaining budget is derived from transactions.
func (c *Container) AddTransaction(tx model.Transaction) (model.Transaction, error) {
	if tx.ID == "" {
		tx.ID = c.newID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = c.now()
	}
	if tx.Date == "" {
		tx.Date = tx.CreatedAt.Format(model.DateLayout)
	}
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, err
	}

	err := c.update(func(b *batch) error {
		if slices.ContainsFunc(c.transactions, func(x model.Transaction) bool { return x.ID == tx.ID }) {
			return &model.ValidationError{Entity: "transaction", Field: "id", Reason: "already exists"}
		}
		c.transactions = append(c.transactions, tx)
		c.persistLocked(store.FieldTransactions, c.transactions)
		c.invalidateLocked(b, model.SlotDailyBrief, model.SlotBudgetInsight)
		b.add(TransactionsChanged, slices.Clone(c.transactions))
		b.add(BudgetChanged, c.budget)
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// SetBudget merges p into the budget.
func (c *Container) SetBudget(p model.BudgetPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.update(func(b *batch) error {
		c.budget = c.budget.Apply(p)
		c.persistLocked(store.FieldBudget, c.budget)
		// The daily brief quotes the budget too.
		c.invalidateLocked(b, model.SlotDailyBrief, model.SlotBudgetInsight)
		b.add(BudgetChanged, c.budget)
		return nil
	})
}

// Transactions returns a copy of the transaction list.
func (c *Container) Transactions() []model.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.transactions)
}

// Budget returns the budget limits.
func (c *Container) Budget() model.Budget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.budget
}

// RemainingBudget returns the limit minus everything spent.
func (c *Container) RemainingBudget() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.budget.Limit.Sub(model.TotalSpent(c.transactions))
}
