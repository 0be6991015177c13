package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single spending record. Transactions are append-only.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Validate checks the fields required of a stored transaction.
func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return invalid("transaction", "amount", "must be positive")
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("transaction", "category", "must not be empty")
	}
	if t.Date != "" {
		if _, ok := ParseDateTime(t.Date); !ok {
			return invalid("transaction", "date", "must be an ISO date or date-time")
		}
	}
	return nil
}

// Budget holds the spending limits. Remaining budget is always derived from
// transactions and never stored.
type Budget struct {
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
	Limit   decimal.Decimal `json:"limit"`
}

// BudgetPatch is a partial update for the Budget.
type BudgetPatch struct {
	Weekly  *decimal.Decimal
	Monthly *decimal.Decimal
	Limit   *decimal.Decimal
}

// DefaultBudget returns the budget a new user starts with.
func DefaultBudget() Budget {
	return Budget{
		Weekly:  decimal.NewFromInt(50000),
		Monthly: decimal.NewFromInt(200000),
		Limit:   decimal.NewFromInt(50000),
	}
}

// Validate rejects negative limits.
func (p BudgetPatch) Validate() error {
	for _, f := range []struct {
		name string
		v    *decimal.Decimal
	}{
		{"weekly", p.Weekly},
		{"monthly", p.Monthly},
		{"limit", p.Limit},
	} {
		if f.v != nil && f.v.IsNegative() {
			return invalid("budget", f.name, "must not be negative")
		}
	}
	return nil
}

// Apply returns a copy of b with the patch merged in.
func (b Budget) Apply(p BudgetPatch) Budget {
	if p.Weekly != nil {
		b.Weekly = *p.Weekly
	}
	if p.Monthly != nil {
		b.Monthly = *p.Monthly
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	return b
}

// TotalSpent sums the amounts of txs.
func TotalSpent(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
