package models

import "time"

// Setting persists a configuration value for remote file access. Secret values
// are stored sealed when an encryption key is configured.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"-"`
	Secret    bool      `gorm:"not null;default:false" json:"secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
