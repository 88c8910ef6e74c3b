package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

// Health reports liveness plus datastore reachability. The database check
// keeps external cron from hammering a half-up instance with cleanup calls.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		overall := "ok"
		dbStatus := "ok"
		status := http.StatusOK

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(requestContext(c)) != nil {
				overall = "degraded"
				dbStatus = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		response.Success(c, status, gin.H{
			"status":   overall,
			"database": dbStatus,
		})
	}
}
