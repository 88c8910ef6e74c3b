package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TryOmar/LabShare-sub001/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.Server.CSRF.Enabled)
	require.True(t, cfg.Server.Cookie.Secure)
	require.Equal(t, "labshare.university.edu", cfg.Server.Cookie.Domain)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.True(t, cfg.Database.SeedDemo)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "labshare-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 72*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 5*time.Minute, cfg.Auth.Code.TTL)
	require.Equal(t, 8*time.Minute, cfg.Auth.Code.MatchWindow)
	require.Equal(t, 12*time.Hour, cfg.Auth.Code.Retention)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@labshare.university.edu", cfg.Email.SMTP.From)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "ops-key", cfg.Maintenance.AdminKey)
	require.True(t, cfg.Maintenance.Cleanup.Enabled)
	require.Equal(t, 30*time.Minute, cfg.Maintenance.Cleanup.Interval)
	require.Equal(t, "@every 2h", cfg.Maintenance.Cleanup.Schedule)
	require.Equal(t, 12*time.Hour, cfg.Maintenance.Cleanup.RevokedGrace)
	require.Equal(t, 720*time.Hour, cfg.Maintenance.Cleanup.EventRetention)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.False(t, cfg.Server.Cookie.Secure)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/labshare.sqlite", cfg.Database.Path)
	require.False(t, cfg.Database.SeedDemo)

	require.Equal(t, "labshare", cfg.Auth.JWT.Issuer)
	require.Equal(t, 168*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 10*time.Minute, cfg.Auth.Code.TTL)
	require.Equal(t, 15*time.Minute, cfg.Auth.Code.MatchWindow)
	require.Equal(t, 24*time.Hour, cfg.Auth.Code.Retention)

	require.True(t, cfg.Maintenance.Cleanup.Enabled)
	require.Equal(t, time.Hour, cfg.Maintenance.Cleanup.Interval)
	require.Equal(t, "@hourly", cfg.Maintenance.Cleanup.Schedule)
	require.Equal(t, 24*time.Hour, cfg.Maintenance.Cleanup.RevokedGrace)
	require.Equal(t, 2160*time.Hour, cfg.Maintenance.Cleanup.EventRetention)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "secret",
				Issuer: "issuer",
				TTL:    30 * time.Minute,
			},
			Code: CodeSettings{
				TTL:         5 * time.Minute,
				MatchWindow: 8 * time.Minute,
			},
		},
	}

	tokenCfg := cfg.Auth.TokenServiceConfig()
	require.Equal(t, auth.TokenConfig{
		Secret:   "secret",
		Issuer:   "issuer",
		TokenTTL: 30 * time.Minute,
	}, tokenCfg)

	require.Len(t, cfg.Auth.OTPServiceOptions(), 2)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	tokenCfg := cfg.TokenServiceConfig()
	require.Equal(t, auth.DefaultTokenTTL, tokenCfg.TokenTTL)

	require.Empty(t, cfg.OTPServiceOptions())
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestSchedulerOptionsCoverConfiguredSettings(t *testing.T) {
	cfg := Config{}
	cfg.Auth.Code.Retention = 12 * time.Hour
	cfg.Auth.JWT.TTL = 72 * time.Hour
	cfg.Maintenance.Cleanup.Interval = 30 * time.Minute
	cfg.Maintenance.Cleanup.Schedule = "@every 2h"
	cfg.Maintenance.Cleanup.RevokedGrace = 12 * time.Hour
	cfg.Maintenance.Cleanup.EventRetention = 720 * time.Hour

	require.Len(t, cfg.SchedulerOptions(), 6)
	require.Empty(t, Config{}.SchedulerOptions())
}
