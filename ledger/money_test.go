package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeShare_Profit(t *testing.T) {
	share := ComputeShare(d("20.00"), d("35.00"))
	assert.True(t, share.NetProfit.Equal(d("15.00")), "net profit = %s", share.NetProfit)
	assert.True(t, share.Amount.Equal(d("7.50")), "share = %s", share.Amount)
	assert.True(t, share.InProfit())
}

func TestComputeShare_Loss(t *testing.T) {
	share := ComputeShare(d("100.00"), d("80.00"))
	assert.True(t, share.NetProfit.Equal(d("-20.00")))
	assert.True(t, share.Amount.IsZero())
	assert.False(t, share.InProfit())
}

func TestComputeShare_BreakEven(t *testing.T) {
	share := ComputeShare(d("50"), d("50"))
	assert.True(t, share.NetProfit.IsZero())
	assert.True(t, share.Amount.IsZero())
}

func TestComputeShare_Properties(t *testing.T) {
	cases := []struct{ starting, current string }{
		{"20", "20.01"},
		{"0.10", "0.30"},
		{"1000", "1234.57"},
		{"20", "19.99"},
		{"500", "0"},
		{"12345.67", "99999.99"},
	}
	for _, tc := range cases {
		starting, current := d(tc.starting), d(tc.current)
		share := ComputeShare(starting, current)

		assert.False(t, share.Amount.IsNegative(), "share never negative for %v", tc)
		if current.GreaterThanOrEqual(starting) {
			want := current.Sub(starting).Mul(d("0.5"))
			assert.True(t, share.Amount.Equal(want), "%v: got %s want %s", tc, share.Amount, want)
		} else {
			assert.True(t, share.Amount.IsZero(), "%v: expected zero share", tc)
		}
	}
}

func TestComputeShare_NoFloatDrift(t *testing.T) {
	share := ComputeShare(d("0.1"), d("0.3"))
	assert.Equal(t, "0.20", share.NetProfit.StringFixed(2))
	assert.Equal(t, "0.10", share.Amount.StringFixed(2))
}

func TestValidateCapital(t *testing.T) {
	err := ValidateCapital("account_balance", d("15"))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Minimum capital is $20", verr.Fields["account_balance"])

	assert.NoError(t, ValidateCapital("account_balance", d("20")))
	assert.NoError(t, ValidateCapital("account_balance", d("20.01")))
}

func TestValidationError_Accumulates(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())

	verr.Add("email", "Enter a valid email")
	verr.Add("email", "second message is ignored")
	verr.Add("full_name", "Name must be at least 2 characters")

	err := verr.OrNil()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "Enter a valid email", verr.Fields["email"])
	assert.Equal(t, "validation failed: email: Enter a valid email; full_name: Name must be at least 2 characters", err.Error())
}
