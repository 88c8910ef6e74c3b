package models

import "time"

// SystemSetting persists installation-wide values, such as generated signing
// secrets, that must survive process restarts.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
