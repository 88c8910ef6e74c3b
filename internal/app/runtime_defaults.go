package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/TryOmar/LabShare-sub001/pkg/crypto"
)

const (
	jwtSecretBytes      = 48
	maintenanceKeyBytes = 32

	// GeneratedJWTSecretKey names the signing secret in the generated map and
	// the system settings table.
	GeneratedJWTSecretKey = "auth.jwt.secret"
	// GeneratedMaintenanceKey names the admin cleanup key likewise.
	GeneratedMaintenanceKey = "maintenance.admin_key"
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no
// configuration file is supplied. It returns a map describing which keys were
// generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated[GeneratedJWTSecretKey] = true
	}

	if strings.TrimSpace(cfg.Maintenance.AdminKey) == "" {
		key, err := generateHexKey(maintenanceKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("generate maintenance admin key: %w", err)
		}
		cfg.Maintenance.AdminKey = key
		generated[GeneratedMaintenanceKey] = true
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
