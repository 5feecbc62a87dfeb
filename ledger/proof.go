package ledger

import "github.com/shopspring/decimal"

type ProofStatus string

const (
	ProofPending   ProofStatus = "pending"
	ProofConfirmed ProofStatus = "confirmed"
)

// ProofLine is the slice of a payment proof the rollups need.
type ProofLine struct {
	Status ProofStatus
	Amount decimal.Decimal
}

type ProofTotals struct {
	Pending   decimal.Decimal `json:"pending_share_total"`
	Confirmed decimal.Decimal `json:"confirmed_share_total"`
}

// SumProofs rolls proofs up by status. Each proof lands in exactly one bucket,
// so confirming an already confirmed proof cannot count it twice.
func SumProofs(lines []ProofLine) ProofTotals {
	totals := ProofTotals{Pending: decimal.Zero, Confirmed: decimal.Zero}
	for _, l := range lines {
		switch l.Status {
		case ProofPending:
			totals.Pending = totals.Pending.Add(l.Amount)
		case ProofConfirmed:
			totals.Confirmed = totals.Confirmed.Add(l.Amount)
		}
	}
	return totals
}

// CanSubmitProof checks that a settlement is owed at all.
func CanSubmitProof(status ClientStatus, share Share) error {
	if !status.FinancialsVisible() {
		return ErrForbidden
	}
	if !share.InProfit() {
		return NewValidationError("amount", "No profit to settle")
	}
	return nil
}

// ProofAmount picks the claimed amount: the explicit one when given,
// otherwise the current share. The result is a snapshot.
func ProofAmount(claimed *decimal.Decimal, share Share) (decimal.Decimal, error) {
	if claimed == nil {
		return share.Amount.Round(2), nil
	}
	if !claimed.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "Amount must be greater than zero")
	}
	return claimed.Round(2), nil
}
