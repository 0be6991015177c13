package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetPatchReportsFirstNegativeField(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	p := BudgetPatch{Weekly: &neg, Monthly: &neg, Limit: &neg}

	for range 20 {
		err := p.Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "weekly", ve.Field)
	}

	p.Weekly = nil
	var ve *ValidationError
	require.True(t, errors.As(p.Validate(), &ve))
	assert.Equal(t, "monthly", ve.Field)
}

func TestBudgetPatchAcceptsZero(t *testing.T) {
	zero := decimal.Zero
	assert.NoError(t, BudgetPatch{Weekly: &zero, Limit: &zero}.Validate())
}
