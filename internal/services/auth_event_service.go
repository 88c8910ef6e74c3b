package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/models"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
)

// Actions recorded on the authentication trail.
const (
	AuthEventCodeIssued          = "auth.code_issued"
	AuthEventCodeRejected        = "auth.code_rejected"
	AuthEventLogin               = "auth.login"
	AuthEventLogout              = "auth.logout"
	AuthEventLogoutAll           = "auth.logout_all"
	AuthEventFingerprintMismatch = "auth.fingerprint_mismatch"
	AuthEventCleanupForced       = "auth.cleanup_forced"
)

// Results attached to auth events.
const (
	AuthResultSuccess = "success"
	AuthResultFailure = "failure"
)

// AuthEventEntry captures a single authentication event to persist. Metadata
// must never contain code values or tokens.
type AuthEventEntry struct {
	StudentID *string
	Action    string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuthEventFilters encapsulates optional filters when querying the trail.
type AuthEventFilters struct {
	StudentID string
	Action    string
	Result    string
	Since     *time.Time
	Until     *time.Time
}

// AuthEventListOptions controls pagination and filtering for trail queries.
type AuthEventListOptions struct {
	Page     int
	PageSize int
	Filters  AuthEventFilters
}

// AuthEventService persists and retrieves the authentication trail.
type AuthEventService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuthEventService constructs an AuthEventService using the provided database handle.
func NewAuthEventService(db *gorm.DB) (*AuthEventService, error) {
	if db == nil {
		return nil, errors.New("auth event service: db is required")
	}
	return &AuthEventService{
		db:  db,
		log: logger.WithModule("services.events"),
	}, nil
}

// Record stores an auth event, marshalling metadata into JSON form.
func (s *AuthEventService) Record(ctx context.Context, entry AuthEventEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("auth event service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("auth event service: result is required")
	}

	var payload datatypes.JSON
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("auth event service: marshal metadata: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	event := models.AuthEvent{
		Action:    strings.TrimSpace(entry.Action),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
		Metadata:  payload,
	}

	if entry.StudentID != nil && strings.TrimSpace(*entry.StudentID) != "" {
		id := strings.TrimSpace(*entry.StudentID)
		event.StudentID = &id
	}

	return s.db.WithContext(ctx).Create(&event).Error
}

// RecordFingerprintMismatch satisfies the session layer's event sink. Failures
// are logged and swallowed; trail writes never abort a verification.
func (s *AuthEventService) RecordFingerprintMismatch(ctx context.Context, studentID, sessionID, ip, userAgent string) {
	entry := AuthEventEntry{
		Action:    AuthEventFingerprintMismatch,
		Result:    AuthResultFailure,
		IPAddress: ip,
		UserAgent: userAgent,
		Metadata:  map[string]any{"session_id": sessionID},
	}
	if strings.TrimSpace(studentID) != "" {
		entry.StudentID = &studentID
	}

	if err := s.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record fingerprint mismatch event",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// List returns paginated auth events ordered by creation time descending.
func (s *AuthEventService) List(ctx context.Context, opts AuthEventListOptions) ([]models.AuthEvent, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuthEvent
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuthEvent{})
	query = applyAuthEventFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("auth event service: count events: %w", err)
	}

	if err := query.
		Preload("Student").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("auth event service: list events: %w", err)
	}

	return results, total, nil
}

func applyAuthEventFilters(query *gorm.DB, filters AuthEventFilters) *gorm.DB {
	if filters.StudentID != "" {
		query = query.Where("student_id = ?", filters.StudentID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
