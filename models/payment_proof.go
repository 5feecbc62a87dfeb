package models

import (
	"time"

	"fx-client-portal/ledger"

	"github.com/shopspring/decimal"
)

// PaymentProof is one settlement submission. Amount is a snapshot taken at
// submission time.
type PaymentProof struct {
	ID            string             `json:"id" gorm:"primaryKey;type:uuid"`
	ClientID      string             `json:"client_id" gorm:"type:uuid;not null;index"`
	UserID        string             `json:"user_id" gorm:"type:uuid;not null;index"`
	ScreenshotURL string             `json:"screenshot_url" gorm:"type:text;not null"`
	Amount        decimal.Decimal    `json:"amount" gorm:"type:numeric(20,2);not null"`
	Status        ledger.ProofStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	CreatedAt     time.Time          `json:"created_at" gorm:"autoCreateTime"`
	ConfirmedAt   *time.Time         `json:"confirmed_at,omitempty"`
	ConfirmedBy   *string            `json:"confirmed_by,omitempty" gorm:"type:uuid"`

	ClientName string `json:"client_name,omitempty" gorm:"-"`
}

func (PaymentProof) TableName() string { return "payment_proofs" }

func (p PaymentProof) Line() ledger.ProofLine {
	return ledger.ProofLine{Status: p.Status, Amount: p.Amount}
}

func ProofLines(proofs []PaymentProof) []ledger.ProofLine {
	lines := make([]ledger.ProofLine, 0, len(proofs))
	for _, p := range proofs {
		lines = append(lines, p.Line())
	}
	return lines
}
