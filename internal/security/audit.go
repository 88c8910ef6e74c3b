package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/app"
	"github.com/TryOmar/LabShare-sub001/internal/auth"
	"github.com/TryOmar/LabShare-sub001/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Signing secrets shorter than this fail the audit outright; the generated
// default is 48 bytes.
const minSigningSecretBytes = 32

// Codes that live longer than this get flagged; a one-time code is meant to
// be typed within minutes of arriving.
const maxRecommendedCodeTTL = 15 * time.Minute

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService evaluates the authentication deployment: secret strength,
// cookie transport, code lifetime, mail delivery, and whether anyone can
// actually sign in.
type AuditService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. Dependencies are optional;
// missing inputs degrade the affected checks to warnings.
func NewAuditService(db *gorm.DB, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkSigningSecret(),
		s.checkMaintenanceKey(),
		s.checkCookieTransport(),
		s.checkCodeTTL(),
		s.checkMailDelivery(),
		s.checkActiveRoster(ctx),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) checkSigningSecret() Check {
	if s.cfg == nil {
		return Check{
			ID:          "signing_secret_strength",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to assess the signing secret.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	length := len(strings.TrimSpace(s.cfg.Auth.JWT.Secret))

	switch {
	case length == 0:
		return Check{
			ID:          "signing_secret_strength",
			Status:      StatusFail,
			Message:     "Missing token signing secret.",
			Remediation: "Provide a cryptographically secure signing secret (>= 32 bytes).",
		}
	case length < minSigningSecretBytes:
		return Check{
			ID:          "signing_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("Token signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          "signing_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Token signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase auth.jwt.secret to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      "signing_secret_strength",
			Status:  StatusPass,
			Message: fmt.Sprintf("Token signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkMaintenanceKey() Check {
	if s.cfg == nil {
		return Check{
			ID:          "maintenance_key",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to verify the maintenance key.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	key := strings.TrimSpace(s.cfg.Maintenance.AdminKey)
	if key == "" {
		return Check{
			ID:          "maintenance_key",
			Status:      StatusWarn,
			Message:     "Maintenance key is not configured; the maintenance endpoints are disabled.",
			Remediation: "Set maintenance.admin_key so external cron can trigger cleanup.",
		}
	}

	if len(key) < 32 {
		return Check{
			ID:          "maintenance_key",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Maintenance key is short (%d characters).", len(key)),
			Remediation: "Use a random key of at least 32 characters.",
			Details:     map[string]any{"length": len(key)},
		}
	}

	return Check{
		ID:      "maintenance_key",
		Status:  StatusPass,
		Message: "Maintenance key configured.",
		Details: map[string]any{"length": len(key)},
	}
}

func (s *AuditService) checkCookieTransport() Check {
	if s.cfg == nil {
		return Check{
			ID:          "cookie_transport",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to evaluate cookie flags.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	if !s.cfg.Server.Cookie.Secure {
		return Check{
			ID:          "cookie_transport",
			Status:      StatusWarn,
			Message:     "Auth cookies are not marked Secure; credentials travel over plain HTTP.",
			Remediation: "Serve behind TLS and set server.cookie.secure to true.",
		}
	}

	return Check{
		ID:      "cookie_transport",
		Status:  StatusPass,
		Message: "Auth cookies are restricted to HTTPS.",
	}
}

func (s *AuditService) checkCodeTTL() Check {
	if s.cfg == nil {
		return Check{
			ID:          "code_ttl",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to evaluate code lifetime.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	ttl := s.cfg.Auth.Code.TTL
	if ttl <= 0 {
		ttl = auth.DefaultCodeTTL
	}

	if ttl > maxRecommendedCodeTTL {
		return Check{
			ID:          "code_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Sign-in codes stay valid for %s, longer than the recommended maximum (%s).", ttl, maxRecommendedCodeTTL),
			Remediation: "Reduce auth.code.ttl; one-time codes should expire within minutes.",
			Details:     map[string]any{"ttl": ttl.String()},
		}
	}

	return Check{
		ID:      "code_ttl",
		Status:  StatusPass,
		Message: fmt.Sprintf("Sign-in codes expire after %s.", ttl),
		Details: map[string]any{"ttl": ttl.String()},
	}
}

func (s *AuditService) checkMailDelivery() Check {
	if s.cfg == nil {
		return Check{
			ID:          "mail_delivery",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to verify code delivery.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	if !s.cfg.Email.SMTP.Enabled {
		return Check{
			ID:          "mail_delivery",
			Status:      StatusWarn,
			Message:     "SMTP is disabled; sign-in codes cannot reach students.",
			Remediation: "Configure email.smtp so issued codes are delivered.",
		}
	}

	return Check{
		ID:      "mail_delivery",
		Status:  StatusPass,
		Message: "SMTP delivery configured.",
		Details: map[string]any{"host": s.cfg.Email.SMTP.Host},
	}
}

func (s *AuditService) checkActiveRoster(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          "active_roster",
			Status:      StatusWarn,
			Message:     "Database unavailable; unable to confirm the roster.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return Check{
			ID:          "active_roster",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count active students: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          "active_roster",
			Status:      StatusFail,
			Message:     "No active students; nobody can request a sign-in code.",
			Remediation: "Import the roster or activate at least one student.",
		}
	}

	return Check{
		ID:      "active_roster",
		Status:  StatusPass,
		Message: "Active students present.",
		Details: map[string]any{"count": count},
	}
}
