package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(2, 100*time.Millisecond))
	r.POST("/login", func(c *gin.Context) { c.String(200, "ok") })

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send(); w.Code != 200 {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside window, got %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected zero remaining, got %q", got)
	}

	time.Sleep(120 * time.Millisecond)

	if w := send(); w.Code != 200 {
		t.Fatalf("expected 200 after window reset, got %d", w.Code)
	}
}

func TestRateLimitDisabledWhenUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(0, 0))
	r.GET("/open", func(c *gin.Context) { c.String(200, "ok") })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		r.ServeHTTP(w, req)
		if w.Code != 200 {
			t.Fatalf("expected unlimited passthrough, got %d", w.Code)
		}
	}
}
