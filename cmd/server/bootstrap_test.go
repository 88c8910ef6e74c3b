package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TryOmar/LabShare-sub001/internal/app"
	"github.com/TryOmar/LabShare-sub001/internal/database"
	dbtest "github.com/TryOmar/LabShare-sub001/internal/database/testutil"
)

func TestPersistRuntimeSecretsPinsGeneratedValues(t *testing.T) {
	db := dbtest.MustOpenTestDB(t, dbtest.WithAutoMigrate())
	ctx := context.Background()

	first := &app.Config{}
	first.Auth.JWT.Secret = "generated-secret-boot-1"
	first.Maintenance.AdminKey = "generated-key-boot-1"
	generated := map[string]bool{
		app.GeneratedJWTSecretKey:   true,
		app.GeneratedMaintenanceKey: true,
	}

	require.NoError(t, persistRuntimeSecrets(ctx, db, first, generated))
	require.Equal(t, "generated-secret-boot-1", first.Auth.JWT.Secret)
	require.Equal(t, "generated-key-boot-1", first.Maintenance.AdminKey)

	// A restart generates fresh candidates, but the stored values win so
	// tokens issued before the restart keep verifying after it.
	second := &app.Config{}
	second.Auth.JWT.Secret = "generated-secret-boot-2"
	second.Maintenance.AdminKey = "generated-key-boot-2"

	require.NoError(t, persistRuntimeSecrets(ctx, db, second, generated))
	require.Equal(t, "generated-secret-boot-1", second.Auth.JWT.Secret)
	require.Equal(t, "generated-key-boot-1", second.Maintenance.AdminKey)
}

func TestPersistRuntimeSecretsLeavesConfiguredValuesAlone(t *testing.T) {
	db := dbtest.MustOpenTestDB(t, dbtest.WithAutoMigrate())
	ctx := context.Background()

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "configured-secret"
	cfg.Maintenance.AdminKey = "configured-key"

	require.NoError(t, persistRuntimeSecrets(ctx, db, cfg, nil))

	stored, err := database.GetSystemSetting(ctx, db, database.AuthSigningSecretSetting)
	require.NoError(t, err)
	require.Empty(t, stored)
	require.Equal(t, "configured-secret", cfg.Auth.JWT.Secret)
}

func TestConvertDatabaseConfig(t *testing.T) {
	t.Run("defaults to sqlite", func(t *testing.T) {
		cfg := &app.Config{}
		cfg.Database.Path = "./data/labshare.sqlite"

		dbCfg := convertDatabaseConfig(cfg)
		require.Equal(t, "sqlite", dbCfg.Driver)
		require.Equal(t, "./data/labshare.sqlite", dbCfg.Path)
	})

	t.Run("maps postgres credentials", func(t *testing.T) {
		cfg := &app.Config{}
		cfg.Database.Driver = "PostgreSQL"
		cfg.Database.Postgres = app.DBAuthConfig{
			Host:     " db.example.com ",
			Port:     5433,
			Database: "labshare",
			Username: "labshare",
			Password: "secret",
		}

		dbCfg := convertDatabaseConfig(cfg)
		require.Equal(t, "postgres", dbCfg.Driver)
		require.Equal(t, "db.example.com", dbCfg.Host)
		require.Equal(t, 5433, dbCfg.Port)
		require.Equal(t, "labshare", dbCfg.Name)
		require.Equal(t, "labshare", dbCfg.User)
		require.Equal(t, "secret", dbCfg.Password)
	})

	t.Run("maps mysql credentials", func(t *testing.T) {
		cfg := &app.Config{}
		cfg.Database.Driver = "mysql"
		cfg.Database.MySQL = app.DBAuthConfig{
			Host:     "mysql.internal",
			Port:     3306,
			Database: "labshare",
			Username: "root",
			Password: "root",
		}

		dbCfg := convertDatabaseConfig(cfg)
		require.Equal(t, "mysql", dbCfg.Driver)
		require.Equal(t, "mysql.internal", dbCfg.Host)
		require.Equal(t, 3306, dbCfg.Port)
	})

	t.Run("passes unknown drivers through", func(t *testing.T) {
		cfg := &app.Config{}
		cfg.Database.Driver = "oracle"

		dbCfg := convertDatabaseConfig(cfg)
		require.Equal(t, "oracle", dbCfg.Driver)
	})
}

func TestLoadApplicationConfigRejectsMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/definitely/not/a/config/path")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
