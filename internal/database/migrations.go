package database

import (
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.AuthCode{},
		&models.Session{},
		&models.AuthEvent{},
		&models.SystemSetting{},
	)
}

// SeedDemoStudents inserts a small roster for local development. Idempotent:
// rows matched by email are left untouched.
func SeedDemoStudents(db *gorm.DB) error {
	students := []models.Student{
		{
			Email:         "ada.lovelace@university.edu",
			FullName:      "Ada Lovelace",
			StudentNumber: "20250001",
			IsActive:      true,
		},
		{
			Email:         "alan.turing@university.edu",
			FullName:      "Alan Turing",
			StudentNumber: "20250002",
			IsActive:      true,
		},
		{
			Email:         "grace.hopper@university.edu",
			FullName:      "Grace Hopper",
			StudentNumber: "20250003",
			IsActive:      false,
		},
	}

	for _, student := range students {
		var row models.Student
		result := db.Where(models.Student{Email: student.Email}).
			Attrs(student).
			FirstOrCreate(&row)
		if result.Error != nil {
			return result.Error
		}
		// The column default of true wins over a false zero value at insert
		// time, so inactive seeds need the flag stamped explicitly.
		if result.RowsAffected > 0 && !student.IsActive {
			if err := db.Model(&row).Update("is_active", false).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
