package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/app"
	"github.com/TryOmar/LabShare-sub001/internal/app/maintenance"
	"github.com/TryOmar/LabShare-sub001/internal/auth"
	"github.com/TryOmar/LabShare-sub001/internal/handlers"
	"github.com/TryOmar/LabShare-sub001/internal/middleware"
	"github.com/TryOmar/LabShare-sub001/internal/security"
	"github.com/TryOmar/LabShare-sub001/internal/services"
)

const (
	// Global ceiling per (IP, route).
	defaultRateLimit = 100
	// Tighter ceiling for the code issue/verify endpoints; these are the
	// only guessing surface.
	authRateLimit = 10

	rateLimitWindow = time.Minute
)

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	DB       *gorm.DB
	Config   *app.Config
	Students *services.StudentService
	Events   *services.AuthEventService
	Codes    *auth.OTPService
	Sessions *auth.SessionService
	Tokens   *auth.TokenService
	Cleanup  *maintenance.Scheduler
	Audit    *security.AuditService
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("router: database handle must be provided")
	case d.Config == nil:
		return fmt.Errorf("router: config must be provided")
	case d.Students == nil:
		return fmt.Errorf("router: student service must be provided")
	case d.Codes == nil:
		return fmt.Errorf("router: otp service must be provided")
	case d.Sessions == nil:
		return fmt.Errorf("router: session service must be provided")
	case d.Tokens == nil:
		return fmt.Errorf("router: token service must be provided")
	case d.Cleanup == nil:
		return fmt.Errorf("router: cleanup scheduler must be provided")
	case d.Audit == nil:
		return fmt.Errorf("router: audit service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware, and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}
	r.Use(middleware.RateLimit(defaultRateLimit, rateLimitWindow))

	cookies := middleware.CookieOptions{
		Secure: cfg.Server.Cookie.Secure,
		Domain: cfg.Server.Cookie.Domain,
		MaxAge: deps.Tokens.TokenTTL(),
	}

	authHandler, err := handlers.NewAuthHandler(handlers.AuthDeps{
		Students: deps.Students,
		Events:   deps.Events,
		Codes:    deps.Codes,
		Sessions: deps.Sessions,
		Tokens:   deps.Tokens,
		Cleanup:  deps.Cleanup,
		Cookies:  cookies,
	})
	if err != nil {
		return nil, err
	}

	maintenanceHandler, err := handlers.NewMaintenanceHandler(cfg.Maintenance.AdminKey, deps.Cleanup, deps.Events, deps.Audit)
	if err != nil {
		return nil, err
	}

	guard := middleware.Auth(deps.Tokens, deps.Sessions, cookies)

	registerHealthRoutes(r, cfg, deps.DB)
	registerAuthRoutes(r, guard, authHandler)
	registerMaintenanceRoutes(r, maintenanceHandler)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
