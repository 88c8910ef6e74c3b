package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TryOmar/LabShare-sub001/internal/app"
	testutil "github.com/TryOmar/LabShare-sub001/internal/database/testutil"
	"github.com/TryOmar/LabShare-sub001/internal/models"
)

func hardenedConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "0123456789abcdef0123456789abcdef0123456789abcdef"
	cfg.Auth.Code.TTL = 10 * time.Minute
	cfg.Maintenance.AdminKey = "0123456789abcdef0123456789abcdef"
	cfg.Server.Cookie.Secure = true
	cfg.Email.SMTP.Enabled = true
	cfg.Email.SMTP.Host = "smtp.university.edu"
	return cfg
}

func findCheck(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %q not found", id)
	return Check{}
}

func TestAuditServiceAllGreen(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	student := &models.Student{
		Email:         "audit@labshare.test",
		FullName:      "Audit Student",
		StudentNumber: "20250900",
		IsActive:      true,
	}
	require.NoError(t, db.Create(student).Error)

	svc := NewAuditService(db, hardenedConfig())
	fixed := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	result := svc.Run(context.Background())
	require.Equal(t, fixed, result.CheckedAt)
	require.Len(t, result.Checks, 6)
	require.Equal(t, 6, result.Summary[string(StatusPass)])
	require.Zero(t, result.Summary[string(StatusWarn)])
	require.Zero(t, result.Summary[string(StatusFail)])
}

func TestAuditServiceFlagsWeakSecrets(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := hardenedConfig()
	cfg.Auth.JWT.Secret = "short"
	cfg.Maintenance.AdminKey = ""

	result := NewAuditService(db, cfg).Run(context.Background())

	require.Equal(t, StatusFail, findCheck(t, result, "signing_secret_strength").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "maintenance_key").Status)
}

func TestAuditServiceFlagsInsecureTransport(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := hardenedConfig()
	cfg.Server.Cookie.Secure = false
	cfg.Email.SMTP.Enabled = false
	cfg.Auth.Code.TTL = time.Hour

	result := NewAuditService(db, cfg).Run(context.Background())

	require.Equal(t, StatusWarn, findCheck(t, result, "cookie_transport").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "mail_delivery").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "code_ttl").Status)
}

func TestAuditServiceFailsOnEmptyRoster(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	result := NewAuditService(db, hardenedConfig()).Run(context.Background())
	check := findCheck(t, result, "active_roster")

	require.Equal(t, StatusFail, check.Status)
	require.Contains(t, check.Message, "No active students")
}

func TestAuditServiceDegradesWithoutInputs(t *testing.T) {
	result := NewAuditService(nil, nil).Run(context.Background())

	require.Len(t, result.Checks, 6)
	require.Equal(t, 6, result.Summary[string(StatusWarn)])
	for _, check := range result.Checks {
		require.Equal(t, StatusWarn, check.Status, check.ID)
	}
}
