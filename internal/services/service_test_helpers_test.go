package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/TryOmar/LabShare-sub001/internal/database/testutil"
	"github.com/TryOmar/LabShare-sub001/internal/models"
)

var studentSequence int

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func createStudent(t *testing.T, db *gorm.DB, label string) *models.Student {
	t.Helper()

	studentSequence++
	student := &models.Student{
		Email:         label + "@labshare.test",
		FullName:      "Student " + label,
		StudentNumber: fmt.Sprintf("2025%04d", studentSequence),
		IsActive:      true,
	}
	require.NoError(t, db.Create(student).Error)
	return student
}
