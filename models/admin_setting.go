package models

import "time"

// AdminSetting is one payment destination entry. Version increments on every
// write and backs the optimistic check on save.
type AdminSetting struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(64)"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	Version   int64     `json:"version" gorm:"not null;default:1"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (AdminSetting) TableName() string { return "admin_settings" }
