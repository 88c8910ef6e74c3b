package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the LabShare backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int          `mapstructure:"port"`
	LogLevel string       `mapstructure:"log_level"`
	CSRF     CSRFConfig   `mapstructure:"csrf"`
	Cookie   CookieConfig `mapstructure:"cookie"`
}

// CSRFConfig controls CSRF protection middleware.
type CSRFConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CookieConfig controls the attributes of the auth cookies.
type CookieConfig struct {
	Secure bool   `mapstructure:"secure"`
	Domain string `mapstructure:"domain"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	SeedDemo bool         `mapstructure:"seed_demo"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT  JWTSettings  `mapstructure:"jwt"`
	Code CodeSettings `mapstructure:"code"`
}

// JWTSettings configures the signed bearer tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"token_ttl"`
}

// CodeSettings configures one-time sign-in codes.
type CodeSettings struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MatchWindow time.Duration `mapstructure:"match_window"`
	Retention   time.Duration `mapstructure:"retention"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig captures cleanup scheduling and the admin key guarding
// the forced-cleanup endpoint.
type MaintenanceConfig struct {
	AdminKey string          `mapstructure:"admin_key"`
	Cleanup  CleanupSettings `mapstructure:"cleanup"`
}

// CleanupSettings tunes the background sweeps over auth rows.
type CleanupSettings struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	Schedule       string        `mapstructure:"schedule"`
	RevokedGrace   time.Duration `mapstructure:"revoked_grace"`
	EventRetention time.Duration `mapstructure:"event_retention"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("LABSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.csrf.enabled", false)
	v.SetDefault("server.cookie.secure", false)
	v.SetDefault("server.cookie.domain", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/labshare.sqlite")
	v.SetDefault("database.seed_demo", false)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("auth.jwt.issuer", "labshare")
	v.SetDefault("auth.jwt.token_ttl", "168h")
	v.SetDefault("auth.code.ttl", "10m")
	v.SetDefault("auth.code.match_window", "15m")
	v.SetDefault("auth.code.retention", "24h")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("maintenance.cleanup.enabled", true)
	v.SetDefault("maintenance.cleanup.interval", "1h")
	v.SetDefault("maintenance.cleanup.schedule", "@hourly")
	v.SetDefault("maintenance.cleanup.revoked_grace", "24h")
	v.SetDefault("maintenance.cleanup.event_retention", "2160h")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
