package api

import (
	"github.com/gin-gonic/gin"

	"github.com/TryOmar/LabShare-sub001/internal/handlers"
)

func registerMaintenanceRoutes(engine *gin.Engine, h *handlers.MaintenanceHandler) {
	// Authenticated by the X-Maintenance-Key header inside the handler, not
	// by the session guard; external cron has no session.
	group := engine.Group("/api/maintenance")
	{
		group.POST("/cleanup", h.Cleanup)
		group.GET("/events", h.Events)
		group.GET("/audit", h.Audit)
	}
}
