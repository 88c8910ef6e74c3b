package api

import (
	"github.com/gin-gonic/gin"

	"github.com/TryOmar/LabShare-sub001/internal/handlers"
	"github.com/TryOmar/LabShare-sub001/internal/middleware"
)

func registerAuthRoutes(engine *gin.Engine, guard gin.HandlerFunc, h *handlers.AuthHandler) {
	// Code issue and exchange are the unauthenticated surface; they carry
	// their own tighter rate limit.
	public := engine.Group("/api/auth")
	public.Use(middleware.RateLimit(authRateLimit, rateLimitWindow))
	{
		public.POST("/login", h.Login)
		public.POST("/verify", h.Verify)
	}

	private := engine.Group("/api/auth")
	private.Use(guard)
	{
		private.POST("/logout", h.Logout)
		private.POST("/logout_all", h.LogoutAll)
		private.GET("/me", h.Me)
		private.GET("/sessions", h.Sessions)
	}
}
