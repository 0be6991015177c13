package state_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

func TestRemainingBudget(t *testing.T) {
	f := signedIn(t)

	require.NoError(t, f.c.SetBudget(model.BudgetPatch{Limit: ptr(decimal.NewFromInt(50000))}))
	for _, amount := range []int64{5000, 4500, 2500} {
		_, err := f.c.AddTransaction(model.Transaction{Amount: decimal.NewFromInt(amount), Category: "food"})
		require.NoError(t, err)
	}

	assert.True(t, f.c.RemainingBudget().Equal(decimal.NewFromInt(38000)), f.c.RemainingBudget().String())
	assert.Equal(t, "Budget limit: ₦50,000, Total spent: ₦12,000, Remaining: ₦38,000", f.c.CompressedBudget())
}

func TestAddTransactionEmitsBothEvents(t *testing.T) {
	f := signedIn(t)
	f.c.SetAIMessage(model.SlotBudgetInsight, "insight")
	f.c.SetAIMessage(model.SlotDailyBrief, "brief")
	f.c.SetAIMessage(model.SlotTimeManagementAdvice, "advice")
	r := record(f.bus, state.TransactionsChanged, state.BudgetChanged)

	tx, err := f.c.AddTransaction(model.Transaction{Amount: decimal.RequireFromString("1250.50"), Category: "data"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", tx.Date)
	assert.Equal(t, []string{state.TransactionsChanged, state.BudgetChanged}, r.names())

	msgs := f.c.AIMessages()
	assert.Nil(t, msgs.DailyBrief)
	assert.Nil(t, msgs.BudgetInsight)
	assert.NotNil(t, msgs.TimeManagementAdvice)
}

func TestTransactionValidation(t *testing.T) {
	f := signedIn(t)

	_, err := f.c.AddTransaction(model.Transaction{Amount: decimal.Zero, Category: "food"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.c.AddTransaction(model.Transaction{Amount: decimal.NewFromInt(-5), Category: "food"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.c.AddTransaction(model.Transaction{Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.Empty(t, f.c.Transactions())
}

func TestSetBudgetMergesAndClearsInsight(t *testing.T) {
	f := signedIn(t)
	f.c.SetAIMessage(model.SlotBudgetInsight, "insight")
	r := record(f.bus, state.BudgetChanged)

	require.NoError(t, f.c.SetBudget(model.BudgetPatch{Weekly: ptr(decimal.NewFromInt(10000))}))

	b := f.c.Budget()
	assert.True(t, b.Weekly.Equal(decimal.NewFromInt(10000)))
	assert.True(t, b.Monthly.Equal(model.DefaultBudget().Monthly))
	assert.True(t, b.Limit.Equal(model.DefaultBudget().Limit))
	assert.Nil(t, f.c.AIMessages().BudgetInsight)

	payload, ok := r.last(state.BudgetChanged)
	require.True(t, ok)
	assert.True(t, payload.(model.Budget).Weekly.Equal(decimal.NewFromInt(10000)))

	err := f.c.SetBudget(model.BudgetPatch{Limit: ptr(decimal.NewFromInt(-1))})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₦38,000", state.FormatMoney("₦", decimal.NewFromInt(38000)))
	assert.Equal(t, "-₦2,000", state.FormatMoney("₦", decimal.NewFromInt(-2000)))
	assert.Equal(t, "$1,250.5", state.FormatMoney("$", decimal.RequireFromString("1250.50")))
}
