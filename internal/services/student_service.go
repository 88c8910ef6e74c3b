package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/models"
	apperrors "github.com/TryOmar/LabShare-sub001/pkg/errors"
)

// ErrStudentNotFound indicates the requested student row does not exist.
var ErrStudentNotFound = apperrors.New("STUDENT_NOT_FOUND", "Student not found", http.StatusNotFound)

// StudentService reads the enrolment roster. Accounts are provisioned by
// enrolment tooling; authentication only ever looks them up.
type StudentService struct {
	db *gorm.DB
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(db *gorm.DB) (*StudentService, error) {
	if db == nil {
		return nil, errors.New("student service: db is required")
	}
	return &StudentService{db: db}, nil
}

// FindActiveByEmail resolves an active student by email. Unknown addresses and
// deactivated accounts are indistinguishable to the caller.
func (s *StudentService) FindActiveByEmail(ctx context.Context, email string) (*models.Student, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	var student models.Student
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		Take(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student service: find by email: %w", err)
	}

	return &student, nil
}

// FindByID fetches a student row by identifier.
func (s *StudentService) FindByID(ctx context.Context, id string) (*models.Student, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewBadRequest("student id is required")
	}

	var student models.Student
	err := s.db.WithContext(ctx).Take(&student, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student service: find by id: %w", err)
	}

	return &student, nil
}

// MarkLogin stamps the student's last successful sign-in time.
func (s *StudentService) MarkLogin(ctx context.Context, id string, at time.Time) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(id) == "" {
		return errors.New("student service: student id is required")
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error; err != nil {
		return fmt.Errorf("student service: mark login: %w", err)
	}

	return nil
}
