package models

import (
	"time"

	"fx-client-portal/ledger"

	"github.com/shopspring/decimal"
)

// Client is one applicant / managed account. Net profit is always derived
// from the two balances and never stored.
type Client struct {
	ID                string                  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID            *string                 `json:"user_id,omitempty" gorm:"type:uuid;index"`
	FullName          string                  `json:"full_name" gorm:"type:varchar(100);not null"`
	Email             string                  `json:"email" gorm:"type:varchar(255);not null;index"`
	WhatsApp          string                  `json:"whatsapp" gorm:"column:whatsapp;type:varchar(20);not null"`
	Platform          string                  `json:"platform" gorm:"type:varchar(32);not null"`
	StartingBalance   decimal.Decimal         `json:"starting_balance" gorm:"type:numeric(20,2);not null;default:0"`
	AccountBalance    decimal.Decimal         `json:"account_balance" gorm:"type:numeric(20,2);not null;default:0"`
	Status            ledger.ClientStatus     `json:"status" gorm:"type:varchar(32);not null;default:'new_applicant';index"`
	ActivationStatus  ledger.ActivationStatus `json:"activation_status" gorm:"type:varchar(32);not null;default:'pending_sunday_activation';index"`
	AgreementAccepted bool                    `json:"agreement_accepted" gorm:"not null;default:false"`
	AgreementAt       *time.Time              `json:"agreement_accepted_at,omitempty"`

	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime;<-:create"`
	LastUpdated time.Time `json:"last_updated" gorm:"autoUpdateTime"`
}

func (Client) TableName() string { return "clients" }

// Share derives net profit and the operator share for this client.
func (c *Client) Share() ledger.Share {
	return ledger.ComputeShare(c.StartingBalance, c.AccountBalance)
}
