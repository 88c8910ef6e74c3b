package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/api"
	"github.com/TryOmar/LabShare-sub001/internal/app"
	"github.com/TryOmar/LabShare-sub001/internal/app/maintenance"
	iauth "github.com/TryOmar/LabShare-sub001/internal/auth"
	"github.com/TryOmar/LabShare-sub001/internal/database"
	"github.com/TryOmar/LabShare-sub001/internal/security"
	"github.com/TryOmar/LabShare-sub001/internal/services"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/mail"
)

// runtimeStack bundles the long-lived pieces behind the HTTP server: the
// database handle, the cleanup scheduler, and the assembled router.
type runtimeStack struct {
	DB      *gorm.DB
	Cleanup *maintenance.Scheduler
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, the auth services, the cleanup
// scheduler, and the HTTP router. On any failure everything already started
// is shut down before the error is returned.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generated map[string]bool, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err = persistRuntimeSecrets(ctx, stack.DB, cfg, generated); err != nil {
		return nil, err
	}

	tokens, err := iauth.NewTokenService(cfg.Auth.TokenServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	events, err := services.NewAuthEventService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise auth event service: %w", err)
	}

	sessions, err := iauth.NewSessionService(stack.DB, iauth.SessionConfig{Events: events})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; sign-in codes cannot be delivered")
	}

	codes, err := iauth.NewOTPService(stack.DB, mailer, cfg.Auth.OTPServiceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise otp service: %w", err)
	}

	students, err := services.NewStudentService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise student service: %w", err)
	}

	stack.Cleanup, err = maintenance.NewScheduler(stack.DB, cfg.SchedulerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise cleanup scheduler: %w", err)
	}
	if cfg.Maintenance.Cleanup.Enabled {
		if err = stack.Cleanup.Start(); err != nil {
			return nil, fmt.Errorf("start cleanup schedule: %w", err)
		}
	}

	audit := security.NewAuditService(stack.DB, cfg)
	if result := audit.Run(ctx); result.Summary[string(security.StatusFail)] > 0 ||
		result.Summary[string(security.StatusWarn)] > 0 {
		log.Warn("security audit flagged the configuration",
			zap.Int("failed", result.Summary[string(security.StatusFail)]),
			zap.Int("warnings", result.Summary[string(security.StatusWarn)]))
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:       stack.DB,
		Config:   cfg,
		Students: students,
		Events:   events,
		Codes:    codes,
		Sessions: sessions,
		Tokens:   tokens,
		Cleanup:  stack.Cleanup,
		Audit:    audit,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops the cron runner, waits for in-flight sweeps, and releases
// the database handle.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleanup != nil {
		<-s.Cleanup.Stop().Done()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// persistRuntimeSecrets pins freshly generated secrets in the settings table
// so the next restart reuses them and previously issued tokens keep
// verifying. Values supplied through configuration are left alone.
func persistRuntimeSecrets(ctx context.Context, db *gorm.DB, cfg *app.Config, generated map[string]bool) error {
	if len(generated) == 0 {
		return nil
	}

	if generated[app.GeneratedJWTSecretKey] {
		secret, err := database.EnsureRuntimeSecret(ctx, db, database.AuthSigningSecretSetting, cfg.Auth.JWT.Secret)
		if err != nil {
			return fmt.Errorf("persist signing secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
	}

	if generated[app.GeneratedMaintenanceKey] {
		key, err := database.EnsureRuntimeSecret(ctx, db, database.MaintenanceKeySetting, cfg.Maintenance.AdminKey)
		if err != nil {
			return fmt.Errorf("persist maintenance key: %w", err)
		}
		cfg.Maintenance.AdminKey = key
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")

	if cfg.Database.SeedDemo {
		if err := database.SeedDemoStudents(db); err != nil {
			return nil, fmt.Errorf("seed demo students: %w", err)
		}
		log.Info("demo roster seeded")
	}

	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave the driver as-is so Open reports the unsupported value.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
