package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TryOmar/LabShare-sub001/internal/auth"
	"github.com/TryOmar/LabShare-sub001/pkg/errors"
	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

const (
	CtxStudentIDKey = "studentID"
	CtxSessionIDKey = "sessionID"
)

// Auth authenticates requests from the credential cookie pair: the signed
// bearer token resolves to a session id locally, then the session is checked
// against the presented device fingerprint. Any failure ends the request with
// the same generic 401 and expires both cookies, so a caller cannot tell a
// missing token from a revoked session.
func Auth(tokens *auth.TokenService, sessions *auth.SessionService, cookies CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(TokenCookieName)
		if err != nil || strings.TrimSpace(token) == "" {
			rejectUnauthenticated(c, cookies)
			return
		}

		sessionID, err := tokens.Verify(token)
		if err != nil {
			rejectUnauthenticated(c, cookies)
			return
		}

		fingerprint, err := c.Cookie(DeviceCookieName)
		if err != nil || strings.TrimSpace(fingerprint) == "" {
			rejectUnauthenticated(c, cookies)
			return
		}

		session, err := sessions.Verify(c.Request.Context(), sessionID, fingerprint, auth.SessionMetadata{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			rejectUnauthenticated(c, cookies)
			return
		}

		c.Set(CtxStudentIDKey, session.StudentID)
		c.Set(CtxSessionIDKey, session.ID)

		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context, cookies CookieOptions) {
	ClearAuthCookies(c, cookies)
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}

// StudentID returns the authenticated student id set by Auth.
func StudentID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxStudentIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// SessionID returns the authenticated session id set by Auth.
func SessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxSessionIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
