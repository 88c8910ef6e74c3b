package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TryOmar/LabShare-sub001/pkg/errors"
	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

type rateWindow struct {
	count int
	ends  time.Time
}

// RateLimit limits requests per (clientIP, route) inside a fixed window. The
// counters live in process memory, which is sufficient for a single-instance
// deployment; stale windows are reaped in the background.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		windows = make(map[string]*rateWindow)
	)

	if window > 0 {
		ticker := time.NewTicker(window)
		go func() {
			for range ticker.C {
				now := time.Now()
				mu.Lock()
				for key, w := range windows {
					if now.After(w.ends) {
						delete(windows, key)
					}
				}
				mu.Unlock()
			}
		}()
	}

	return func(c *gin.Context) {
		if maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		now := time.Now()

		mu.Lock()
		w, ok := windows[key]
		if !ok || now.After(w.ends) {
			w = &rateWindow{ends: now.Add(window)}
			windows[key] = w
		}
		w.count++
		count := w.count
		resetIn := time.Until(w.ends)
		mu.Unlock()

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
