package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// TokenCookieName carries the signed bearer token.
	TokenCookieName = "labshare_token"
	// DeviceCookieName carries the device fingerprint bound to the session.
	DeviceCookieName = "labshare_device"
)

// CookieOptions describes the attributes applied to both credential cookies.
// MaxAge mirrors the bearer token lifetime so the pair expires together.
type CookieOptions struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// SetAuthCookies installs the bearer token and device fingerprint cookies.
// Both are HttpOnly with SameSite=Lax; either one alone is useless, so the
// pair always travels together.
func SetAuthCookies(c *gin.Context, opts CookieOptions, token, fingerprint string) {
	maxAge := int(opts.MaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((7 * 24 * time.Hour).Seconds())
	}

	setAuthCookie(c, opts, TokenCookieName, token, maxAge)
	setAuthCookie(c, opts, DeviceCookieName, fingerprint, maxAge)
}

// ClearAuthCookies expires both credential cookies so clients stop resending
// dead credentials.
func ClearAuthCookies(c *gin.Context, opts CookieOptions) {
	setAuthCookie(c, opts, TokenCookieName, "", -1)
	setAuthCookie(c, opts, DeviceCookieName, "", -1)
}

func setAuthCookie(c *gin.Context, opts CookieOptions, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   maxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
