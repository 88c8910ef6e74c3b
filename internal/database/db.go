package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Config contains database connection options. Path applies to the sqlite
// driver; Host through Options apply to the server drivers. DSN overrides
// everything when set.
type Config struct {
	Driver   string
	Path     string
	DSN      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string
}

// Open initialises a gorm.DB using the provided configuration.
func Open(cfg Config) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "sqlite":
		return openSQLite(cfg)
	case "postgres", "postgresql":
		return openPostgres(cfg)
	case "mysql":
		return openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
