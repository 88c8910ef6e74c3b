package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/models"
)

// Setting keys for runtime secrets that must stay stable across restarts.
const (
	AuthSigningSecretSetting = "auth.signing_secret"
	MaintenanceKeySetting    = "maintenance.admin_key"
)

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// EnsureRuntimeSecret returns the stored value for key, persisting candidate
// when nothing is stored yet. Generated secrets survive restarts this way, so
// tokens signed before a redeploy keep verifying after it.
func EnsureRuntimeSecret(ctx context.Context, db *gorm.DB, key, candidate string) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", fmt.Errorf("system settings: candidate for %q is empty", key)
	}

	current, err := GetSystemSetting(ctx, db, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(current) != "" {
		return current, nil
	}

	if err := UpsertSystemSetting(ctx, db, key, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}
