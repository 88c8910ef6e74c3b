package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func cookiesByName(t *testing.T, w *httptest.ResponseRecorder) map[string]*http.Cookie {
	t.Helper()
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestSetAuthCookiesAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/login", func(c *gin.Context) {
		SetAuthCookies(c, CookieOptions{
			Secure: true,
			Domain: "labshare.university.edu",
			MaxAge: 72 * time.Hour,
		}, "token-value", "fingerprint-value")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := cookiesByName(t, w)
	for _, name := range []string{TokenCookieName, DeviceCookieName} {
		c := cookies[name]
		require.NotNil(t, c, name)
		require.True(t, c.HttpOnly, name)
		require.True(t, c.Secure, name)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite, name)
		require.Equal(t, "labshare.university.edu", c.Domain, name)
		require.Equal(t, int((72 * time.Hour).Seconds()), c.MaxAge, name)
		require.Equal(t, "/", c.Path, name)
	}
	require.Equal(t, "token-value", cookies[TokenCookieName].Value)
	require.Equal(t, "fingerprint-value", cookies[DeviceCookieName].Value)
}

func TestSetAuthCookiesDefaultLifetime(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/login", func(c *gin.Context) {
		SetAuthCookies(c, CookieOptions{}, "token-value", "fingerprint-value")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := cookiesByName(t, w)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookies[TokenCookieName].MaxAge)
	require.False(t, cookies[TokenCookieName].Secure)
}

func TestClearAuthCookiesExpiresBoth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/logout", func(c *gin.Context) {
		ClearAuthCookies(c, CookieOptions{})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	cookies := cookiesByName(t, w)
	for _, name := range []string{TokenCookieName, DeviceCookieName} {
		c := cookies[name]
		require.NotNil(t, c, name)
		require.Empty(t, c.Value, name)
		require.Negative(t, c.MaxAge, name)
	}
}
