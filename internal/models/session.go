package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session binds a signed-in student to the device fingerprint captured at
// verification time. The fingerprint never changes for the life of the row.
type Session struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	StudentID   string     `gorm:"type:uuid;not null;index" json:"student_id"`
	Student     *Student   `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Fingerprint string     `gorm:"not null" json:"-"`
	IPAddress   string     `json:"ip_address"`
	UserAgent   string     `json:"user_agent"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
