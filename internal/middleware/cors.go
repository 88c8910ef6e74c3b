package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const corsMaxAgeSeconds = "43200" // 12 hours

// CORS handles cross-origin requests. Requests carrying an Origin header get
// that origin echoed back with credentials allowed, because the auth cookies
// must survive cross-origin XHR during development; origin-less requests fall
// back to the wildcard. Preflights are answered directly with 204.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, X-Maintenance-Key")
		c.Header("Access-Control-Max-Age", corsMaxAgeSeconds)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
