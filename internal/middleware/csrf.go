package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TryOmar/LabShare-sub001/pkg/crypto"
	"github.com/TryOmar/LabShare-sub001/pkg/errors"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

const (
	// CSRFCookieName is the cookie used to transport the CSRF token to clients.
	CSRFCookieName = "labshare_csrf"
	// CSRFHeaderName is the header clients must present for unsafe HTTP methods.
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenLength  = 48
	csrfCookieMaxAge = 12 * 60 * 60 // 12 hours
)

// CSRF implements the double-submit-cookie pattern for the cookie-authenticated
// API. Safe methods receive a token via cookie and response header; mutating
// requests must echo it back in the X-CSRF-Token header.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodOptions {
			c.Next()
			return
		}

		token, err := ensureCSRFCookie(c)
		if err != nil {
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}

		if !isMutating(method) {
			c.Header(CSRFHeaderName, token)
			c.Next()
			return
		}

		presented := strings.TrimSpace(c.GetHeader(CSRFHeaderName))
		if !constantTimeEqual(token, presented) {
			// Token values stay out of the log line.
			logger.WithModule("csrf").Warn("csrf validation failed",
				zap.String("method", method),
				zap.String("path", c.FullPath()),
			)
			response.Error(c, errors.ErrCSRFInvalid)
			c.Abort()
			return
		}

		c.Next()
	}
}

func ensureCSRFCookie(c *gin.Context) (string, error) {
	if existing, err := c.Cookie(CSRFCookieName); err == nil && existing != "" {
		setCSRFCookie(c, existing)
		return existing, nil
	}

	token, err := crypto.GenerateToken(csrfTokenLength)
	if err != nil {
		return "", err
	}
	setCSRFCookie(c, token)
	return token, nil
}

func setCSRFCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Secure:   isSecureRequest(c.Request),
		HttpOnly: false,
		MaxAge:   csrfCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
