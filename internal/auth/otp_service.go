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
	"github.com/TryOmar/LabShare-sub001/pkg/crypto"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/mail"
	"github.com/TryOmar/LabShare-sub001/pkg/metrics"
)

const (
	// DefaultCodeTTL is how long an issued code stays valid.
	DefaultCodeTTL = 10 * time.Minute
	// DefaultCodeMatchWindow bounds how far back Verify looks for a candidate
	// row. Older rows are never compared, expired or not.
	DefaultCodeMatchWindow = 15 * time.Minute

	codeDigits = 6
)

var (
	// ErrCodeMalformed rejects input that is not a 6-digit code before any
	// datastore work happens.
	ErrCodeMalformed = errors.New("auth code: malformed")
	// ErrCodeInvalid covers every other rejection. Expired, consumed,
	// mismatched, and absent codes are indistinguishable to callers.
	ErrCodeInvalid = errors.New("auth code: invalid")
)

// OTPOption configures optional behaviour on the OTPService.
type OTPOption func(*OTPService)

// WithCodeTTL overrides the validity window of issued codes.
func WithCodeTTL(ttl time.Duration) OTPOption {
	return func(s *OTPService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCodeMatchWindow overrides how far back Verify searches for codes.
func WithCodeMatchWindow(window time.Duration) OTPOption {
	return func(s *OTPService) {
		if window > 0 {
			s.matchWindow = window
		}
	}
}

// WithOTPClock injects a clock, primarily for tests.
func WithOTPClock(clock func() time.Time) OTPOption {
	return func(s *OTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// OTPService issues and verifies one-time sign-in codes. Codes are stored
// bcrypt-hashed; the plaintext exists only in the issuing call and the email
// on its way to the student.
type OTPService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	ttl         time.Duration
	matchWindow time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewOTPService constructs an OTP issuer/verifier backed by the database and mailer.
func NewOTPService(db *gorm.DB, mailer mail.Mailer, opts ...OTPOption) (*OTPService, error) {
	if db == nil {
		return nil, errors.New("otp service: db is required")
	}
	if mailer == nil {
		return nil, errors.New("otp service: mailer is required")
	}

	service := &OTPService{
		db:          db,
		mailer:      mailer,
		ttl:         DefaultCodeTTL,
		matchWindow: DefaultCodeMatchWindow,
		now:         time.Now,
		log:         logger.WithModule("auth.codes"),
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates a fresh code for the student, replaces any unconsumed
// predecessors, and emails the plaintext. The returned code is for out-of-band
// delivery only and must never reach logs or response bodies.
func (s *OTPService) Issue(ctx context.Context, student *models.Student) (string, error) {
	if student == nil || strings.TrimSpace(student.Email) == "" {
		return "", errors.New("otp service: student with email is required")
	}

	code, err := crypto.GenerateNumericCode(codeDigits)
	if err != nil {
		return "", fmt.Errorf("otp service: generate code: %w", err)
	}
	hash, err := crypto.HashCode(code)
	if err != nil {
		return "", fmt.Errorf("otp service: hash code: %w", err)
	}

	now := s.now()
	record := &models.AuthCode{
		StudentID: student.ID,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.ttl),
	}
	record.CreatedAt = now

	// Replacing and inserting must be atomic so a student never holds two
	// live codes, and never zero after a reissue.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("student_id = ? AND consumed_at IS NULL", student.ID).
			Delete(&models.AuthCode{}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return "", fmt.Errorf("otp service: store code: %w", err)
	}

	metrics.CodesIssued.Inc()
	s.log.Info("sign-in code issued",
		zap.String("student_id", student.ID),
		zap.Time("expires_at", record.ExpiresAt))

	message := mail.Message{
		To:      student.Email,
		Subject: "Your LabShare sign-in code",
		Body: fmt.Sprintf(
			"Hi %s,\r\n\r\nYour sign-in code is %s. It expires in %d minutes.\r\n\r\nIf you did not request this code you can ignore this email.\r\n",
			student.FullName, code, int(s.ttl.Minutes())),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Debug("smtp disabled, skipping code delivery",
				zap.String("student_id", student.ID))
		} else {
			return "", fmt.Errorf("otp service: send code email: %w", err)
		}
	}

	return code, nil
}

// Verify checks the presented code against the student's most recent
// unconsumed one and consumes it on success. Concurrent verifications of the
// same code race on a conditional update; exactly one wins.
func (s *OTPService) Verify(ctx context.Context, studentID, code string) (*models.AuthCode, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, errors.New("otp service: student id is required")
	}

	code = strings.TrimSpace(code)
	if !isWellFormedCode(code) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrCodeMalformed
	}

	now := s.now()

	var record models.AuthCode
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND consumed_at IS NULL AND created_at > ?",
			studentID, now.Add(-s.matchWindow)).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Debug("no candidate code in match window", zap.String("student_id", studentID))
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrCodeInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("otp service: find code: %w", err)
	}

	if record.ExpiresAt.Before(now) {
		if err := s.db.WithContext(ctx).Delete(&models.AuthCode{}, "id = ?", record.ID).Error; err != nil {
			s.log.Warn("failed to delete expired code",
				zap.String("code_id", record.ID), zap.Error(err))
		}
		s.log.Debug("code expired", zap.String("student_id", studentID))
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrCodeInvalid
	}

	if !crypto.VerifyCode(record.CodeHash, code) {
		s.log.Debug("code mismatch", zap.String("student_id", studentID))
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrCodeInvalid
	}

	// The consumed_at guard makes consumption first-wins under concurrency.
	result := s.db.WithContext(ctx).
		Model(&models.AuthCode{}).
		Where("id = ? AND consumed_at IS NULL", record.ID).
		Update("consumed_at", now)
	if result.Error != nil {
		return nil, fmt.Errorf("otp service: consume code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		s.log.Debug("code already consumed", zap.String("student_id", studentID))
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrCodeInvalid
	}

	record.ConsumedAt = &now
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return &record, nil
}

func isWellFormedCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
