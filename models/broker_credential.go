package models

import "time"

// MaskedPassword replaces a broker password in any listing unless the caller
// explicitly asks to reveal it.
const MaskedPassword = "••••••••"

// BrokerCredential is one submitted trading-account login. It is created and
// deleted, never edited. The password is sealed before it reaches the table.
type BrokerCredential struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID         string    `json:"user_id" gorm:"type:uuid;not null;index"`
	BrokerName     string    `json:"broker_name" gorm:"type:varchar(100);not null"`
	ServerName     string    `json:"server_name" gorm:"type:varchar(100);not null;index:idx_broker_login"`
	LoginNumber    string    `json:"login_number" gorm:"type:varchar(32);not null;index:idx_broker_login"`
	SealedPassword []byte    `json:"-" gorm:"column:password_sealed;not null"`
	Platform       string    `json:"platform" gorm:"type:varchar(32);not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Filled in for display only.
	Password   string `json:"password" gorm:"-"`
	ClientName string `json:"client_name,omitempty" gorm:"-"`
}

func (BrokerCredential) TableName() string { return "broker_credentials" }
