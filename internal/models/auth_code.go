package models

import "time"

// AuthCode stores one-time sign-in codes, hashed at rest. At most one
// unconsumed code exists per student; issuing a new one removes the rest.
type AuthCode struct {
	BaseModel

	StudentID  string     `gorm:"type:uuid;not null;index" json:"student_id"`
	Student    *Student   `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	CodeHash   string     `gorm:"not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
}
