package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TryOmar/LabShare-sub001/internal/app/maintenance"
	"github.com/TryOmar/LabShare-sub001/internal/security"
	"github.com/TryOmar/LabShare-sub001/internal/services"
	appErrors "github.com/TryOmar/LabShare-sub001/pkg/errors"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

// MaintenanceKeyHeader authenticates operators calling the maintenance API.
const MaintenanceKeyHeader = "X-Maintenance-Key"

// MaintenanceHandler exposes the forced cleanup entry point used by external
// cron, plus the authentication trail and the security audit behind the same
// operator key.
type MaintenanceHandler struct {
	adminKey string
	cleanup  *maintenance.Scheduler
	events   *services.AuthEventService
	audit    *security.AuditService
	log      *zap.Logger
}

func NewMaintenanceHandler(adminKey string, cleanup *maintenance.Scheduler, events *services.AuthEventService, audit *security.AuditService) (*MaintenanceHandler, error) {
	if cleanup == nil {
		return nil, fmt.Errorf("maintenance handler: scheduler is required")
	}

	return &MaintenanceHandler{
		adminKey: strings.TrimSpace(adminKey),
		cleanup:  cleanup,
		events:   events,
		audit:    audit,
		log:      logger.WithModule("handlers.maintenance"),
	}, nil
}

// POST /api/maintenance/cleanup
// Runs the retention sweep immediately, bypassing the lazy throttle, and
// returns the per-table delete counts.
func (h *MaintenanceHandler) Cleanup(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	stats, err := h.cleanup.RunForced(requestContext(c))
	if err != nil {
		h.log.Error("forced cleanup", zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	h.recordForcedRun(c, stats)

	response.Success(c, http.StatusOK, gin.H{
		"codes_deleted":    stats.CodesDeleted,
		"sessions_deleted": stats.SessionsDeleted,
		"events_deleted":   stats.EventsDeleted,
	})
}

// GET /api/maintenance/events
// Pages through the authentication trail, optionally filtered by student,
// action, result, or a since/until time window.
func (h *MaintenanceHandler) Events(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	if h.events == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	since, err := parseTimeQuery(c, "since")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("since must be an RFC 3339 timestamp"))
		return
	}
	until, err := parseTimeQuery(c, "until")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("until must be an RFC 3339 timestamp"))
		return
	}

	opts := services.AuthEventListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "per_page", 50),
		Filters: services.AuthEventFilters{
			StudentID: strings.TrimSpace(c.Query("student_id")),
			Action:    strings.TrimSpace(c.Query("action")),
			Result:    strings.TrimSpace(c.Query("result")),
			Since:     since,
			Until:     until,
		},
	}

	events, total, err := h.events.List(requestContext(c), opts)
	if err != nil {
		h.log.Error("list auth events", zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"events": events,
		"total":  total,
	})
}

// GET /api/maintenance/audit
// Reports deployment hardening checks so operators can see what the current
// configuration leaves exposed.
func (h *MaintenanceHandler) Audit(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	if h.audit == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, h.audit.Run(requestContext(c)))
}

// authorize compares the presented maintenance key in constant time. An
// unset server key disables the endpoints entirely.
func (h *MaintenanceHandler) authorize(c *gin.Context) bool {
	presented := strings.TrimSpace(c.GetHeader(MaintenanceKeyHeader))
	if h.adminKey == "" || presented == "" ||
		len(presented) != len(h.adminKey) ||
		subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminKey)) != 1 {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	return true
}

func (h *MaintenanceHandler) recordForcedRun(c *gin.Context, stats maintenance.Stats) {
	if h.events == nil {
		return
	}

	entry := services.AuthEventEntry{
		Action:    services.AuthEventCleanupForced,
		Result:    services.AuthResultSuccess,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata: map[string]any{
			"codes_deleted":    stats.CodesDeleted,
			"sessions_deleted": stats.SessionsDeleted,
			"events_deleted":   stats.EventsDeleted,
		},
	}
	if err := h.events.Record(requestContext(c), entry); err != nil {
		h.log.Warn("record forced cleanup event", zap.Error(err))
	}
}
