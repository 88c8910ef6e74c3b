package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/auth"
	"github.com/TryOmar/LabShare-sub001/internal/database/testutil"
	"github.com/TryOmar/LabShare-sub001/internal/models"
)

type authTestEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	sessions *auth.SessionService
	tokens   *auth.TokenService
	student  *models.Student
}

func setupAuthTest(t *testing.T) *authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	student := &models.Student{
		Email:         "dana.scully@labshare.test",
		FullName:      "Dana Scully",
		StudentNumber: "20250042",
	}
	require.NoError(t, db.Create(student).Error)

	sessions, err := auth.NewSessionService(db, auth.SessionConfig{})
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   "middleware-test-secret",
		Issuer:   "labshare-test",
		TokenTTL: time.Hour,
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(tokens, sessions, CookieOptions{}), func(c *gin.Context) {
		studentID, _ := StudentID(c)
		sessionID, _ := SessionID(c)
		c.JSON(http.StatusOK, gin.H{
			"student_id": studentID,
			"session_id": sessionID,
		})
	})

	return &authTestEnv{router: r, db: db, sessions: sessions, tokens: tokens, student: student}
}

func (env *authTestEnv) login(t *testing.T, userAgent string) (session *models.Session, token, fingerprint string) {
	t.Helper()

	fingerprint, err := auth.Fingerprint(userAgent)
	require.NoError(t, err)

	session, err = env.sessions.Create(context.Background(), env.student.ID, fingerprint, auth.SessionMetadata{
		IPAddress: "127.0.0.1",
		UserAgent: userAgent,
	})
	require.NoError(t, err)

	token, err = env.tokens.Issue(session.ID)
	require.NoError(t, err)

	return session, token, fingerprint
}

func (env *authTestEnv) request(token, fingerprint string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	}
	if fingerprint != "" {
		req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: fingerprint})
	}
	env.router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsCookiePair(t *testing.T) {
	env := setupAuthTest(t)
	session, token, fingerprint := env.login(t, "Mozilla/5.0 lab-laptop")

	w := env.request(token, fingerprint)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, env.student.ID, payload["student_id"])
	require.Equal(t, session.ID, payload["session_id"])
}

func TestAuthMiddlewareRejectsMissingCookies(t *testing.T) {
	env := setupAuthTest(t)

	w := env.request("", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Both credential cookies are expired in the response.
	expired := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			expired[c.Name] = true
		}
	}
	require.True(t, expired[TokenCookieName])
	require.True(t, expired[DeviceCookieName])
}

func TestAuthMiddlewareRejectsTokenWithoutDevice(t *testing.T) {
	env := setupAuthTest(t)
	_, token, _ := env.login(t, "Mozilla/5.0 lab-laptop")

	w := env.request(token, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	env := setupAuthTest(t)
	_, _, fingerprint := env.login(t, "Mozilla/5.0 lab-laptop")

	w := env.request("not-a-token", fingerprint)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareForeignFingerprintBurnsSession(t *testing.T) {
	env := setupAuthTest(t)
	session, token, fingerprint := env.login(t, "Mozilla/5.0 lab-laptop")

	stolen, err := auth.Fingerprint("curl/8.5 attacker")
	require.NoError(t, err)

	w := env.request(token, stolen)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var stored models.Session
	require.NoError(t, env.db.First(&stored, "id = ?", session.ID).Error)
	require.NotNil(t, stored.RevokedAt)

	// The legitimate pair is burned along with the stolen one.
	w = env.request(token, fingerprint)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsRevokedSession(t *testing.T) {
	env := setupAuthTest(t)
	session, token, fingerprint := env.login(t, "Mozilla/5.0 lab-laptop")

	require.NoError(t, env.sessions.Revoke(context.Background(), session.ID))

	w := env.request(token, fingerprint)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
