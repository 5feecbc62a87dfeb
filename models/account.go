package models

import "time"

const RoleOperator = "admin"

// Account is a sign-in identity. Clients link to it through Client.UserID.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash []byte    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Account) TableName() string { return "accounts" }

type UserRole struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:uuid"`
	Role      string    `json:"role" gorm:"primaryKey;type:varchar(32)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }

// RevokedToken records a signed-out session id until its expiry passes.
type RevokedToken struct {
	TokenID   string    `gorm:"primaryKey;type:varchar(64)"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (RevokedToken) TableName() string { return "revoked_tokens" }
