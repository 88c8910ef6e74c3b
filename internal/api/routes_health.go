package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/app"
	"github.com/TryOmar/LabShare-sub001/internal/handlers"
)

func registerHealthRoutes(engine *gin.Engine, cfg *app.Config, db *gorm.DB) {
	if cfg == nil || !cfg.Monitoring.Health.Enabled {
		engine.GET("/health", disabledHealthHandler)
		engine.GET("/api/health", disabledHealthHandler)
		return
	}

	health := handlers.Health(db)
	engine.GET("/health", health)
	engine.GET("/api/health", health)
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
