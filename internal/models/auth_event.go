package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuthEvent struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	StudentID *string        `gorm:"type:uuid;index" json:"student_id"`
	Student   *Student       `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Action    string         `gorm:"not null;index" json:"action"`
	Result    string         `gorm:"not null" json:"result"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	Metadata  datatypes.JSON `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (e *AuthEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
