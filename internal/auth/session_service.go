package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/models"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/metrics"
)

var (
	// ErrSessionNotFound indicates that no live session matches the identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionInvalid covers every verification failure a caller may learn
	// about. Unknown ids, revoked sessions, and fingerprint mismatches all
	// collapse here.
	ErrSessionInvalid = errors.New("session: invalid")
)

// EventSink receives security-relevant session events. Recording is
// best-effort; implementations must not block the verification path.
type EventSink interface {
	RecordFingerprintMismatch(ctx context.Context, studentID, sessionID, ip, userAgent string)
}

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	Clock  func() time.Time
	Events EventSink
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// SessionService manages creation, verification, and revocation of
// device-bound student sessions. The datastore is the only synchronisation
// point; concurrent calls coordinate through conditional updates.
type SessionService struct {
	db     *gorm.DB
	now    func() time.Time
	events EventSink
	log    *zap.Logger
}

// NewSessionService constructs a session manager backed by the provided database.
func NewSessionService(db *gorm.DB, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:     db,
		now:    clock,
		events: cfg.Events,
		log:    logger.WithModule("auth.sessions"),
	}, nil
}

// Create opens a new session binding the student to the supplied device
// fingerprint. The fingerprint is immutable for the life of the session.
func (s *SessionService) Create(ctx context.Context, studentID, fingerprint string, meta SessionMetadata) (*models.Session, error) {
	studentID = strings.TrimSpace(studentID)
	fingerprint = strings.TrimSpace(fingerprint)
	if studentID == "" {
		return nil, errors.New("session service: student id is required")
	}
	if fingerprint == "" {
		return nil, errors.New("session service: fingerprint is required")
	}

	now := s.now()
	session := &models.Session{
		StudentID:   studentID,
		Fingerprint: fingerprint,
		IPAddress:   strings.TrimSpace(meta.IPAddress),
		UserAgent:   strings.TrimSpace(meta.UserAgent),
		LastSeenAt:  now,
		CreatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	return session, nil
}

// Verify checks that the session is live and was bound to the presented
// fingerprint. A live session presented with a foreign fingerprint is revoked
// on the spot; the caller only ever sees ErrSessionInvalid.
func (s *SessionService) Verify(ctx context.Context, sessionID, fingerprint string, meta SessionMetadata) (*models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	fingerprint = strings.TrimSpace(fingerprint)
	if sessionID == "" || fingerprint == "" {
		return nil, ErrSessionInvalid
	}

	var session models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND revoked_at IS NULL AND fingerprint = ?", sessionID, fingerprint).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.revokeOnMismatch(ctx, sessionID, fingerprint, meta)
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	// Best-effort; a failed touch must not break an otherwise valid login.
	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", session.ID).
		Update("last_seen_at", now).Error; err != nil {
		s.log.Warn("failed to update session last_seen_at",
			zap.String("session_id", session.ID), zap.Error(err))
	} else {
		session.LastSeenAt = now
	}

	return &session, nil
}

// revokeOnMismatch retires a live session that was presented with a foreign
// fingerprint. The single conditional update doubles as the detection: rows
// are only affected when a live session exists under another fingerprint.
func (s *SessionService) revokeOnMismatch(ctx context.Context, sessionID, fingerprint string, meta SessionMetadata) {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL AND fingerprint <> ?", sessionID, fingerprint).
		Update("revoked_at", s.now())
	if result.Error != nil {
		s.log.Warn("failed to revoke session on fingerprint mismatch",
			zap.String("session_id", sessionID), zap.Error(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		return
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	metrics.FingerprintMismatches.Inc()
	s.log.Warn("session revoked on device fingerprint mismatch",
		zap.String("session_id", sessionID))

	if s.events == nil {
		return
	}
	var revoked models.Session
	if err := s.db.WithContext(ctx).
		Select("student_id").
		Take(&revoked, "id = ?", sessionID).Error; err != nil {
		return
	}
	s.events.RecordFingerprintMismatch(ctx, revoked.StudentID, sessionID, meta.IPAddress, meta.UserAgent)
}

// Revoke marks a session as revoked, ending it for all future requests.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionNotFound
	}

	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))

	return nil
}

// RevokeAll revokes every live session belonging to a student and reports
// how many were affected.
func (s *SessionService) RevokeAll(ctx context.Context, studentID string) (int64, error) {
	if strings.TrimSpace(studentID) == "" {
		return 0, errors.New("session service: student id is required")
	}

	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("student_id = ? AND revoked_at IS NULL", studentID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return 0, fmt.Errorf("session service: revoke student sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// ListActive returns the student's live sessions, newest first.
func (s *SessionService) ListActive(ctx context.Context, studentID string) ([]models.Session, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, errors.New("session service: student id is required")
	}

	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND revoked_at IS NULL", studentID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("session service: list sessions: %w", err)
	}

	return sessions, nil
}
