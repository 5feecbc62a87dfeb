// Package ledger holds the settlement rules for managed client accounts: the
// profit-share calculator, the client lifecycle, the payment proof workflow
// and the payment destination settings. Nothing in here performs I/O.
package ledger

import "github.com/shopspring/decimal"

var (
	// MinimumCapital is the smallest balance a client may start with.
	MinimumCapital = decimal.NewFromInt(20)

	// ShareRate is the operator's cut of positive net profit.
	ShareRate = decimal.RequireFromString("0.5")
)

const MinimumCapitalMessage = "Minimum capital is $20"

// Share is the derived profit position of one client. It is never stored.
type Share struct {
	NetProfit decimal.Decimal `json:"net_profit"`
	Amount    decimal.Decimal `json:"share"`
}

// ComputeShare derives net profit and the operator share from the starting
// and current balances. The share is zero unless the client is in profit.
func ComputeShare(starting, current decimal.Decimal) Share {
	net := current.Sub(starting)
	if !net.IsPositive() {
		return Share{NetProfit: net, Amount: decimal.Zero}
	}
	return Share{NetProfit: net, Amount: net.Mul(ShareRate)}
}

// InProfit reports whether the settlement section applies.
func (s Share) InProfit() bool {
	return s.NetProfit.IsPositive()
}

// ValidateCapital checks a balance against the minimum.
func ValidateCapital(field string, amount decimal.Decimal) error {
	if amount.LessThan(MinimumCapital) {
		return NewValidationError(field, MinimumCapitalMessage)
	}
	return nil
}

// ValidateNonNegative rejects negative monetary input.
func ValidateNonNegative(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return NewValidationError(field, "Amount cannot be negative")
	}
	return nil
}
