package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student is an enrolled identity imported from the course roster.
// Authentication only reads these rows; enrolment tooling owns their lifecycle.
type Student struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	FullName      string `gorm:"not null" json:"full_name"`
	StudentNumber string `gorm:"uniqueIndex;not null" json:"student_number"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
