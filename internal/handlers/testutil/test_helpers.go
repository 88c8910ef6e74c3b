package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/TryOmar/LabShare-sub001/internal/api"
	"github.com/TryOmar/LabShare-sub001/internal/app"
	"github.com/TryOmar/LabShare-sub001/internal/app/maintenance"
	"github.com/TryOmar/LabShare-sub001/internal/auth"
	sharedtestutil "github.com/TryOmar/LabShare-sub001/internal/database/testutil"
	"github.com/TryOmar/LabShare-sub001/internal/middleware"
	"github.com/TryOmar/LabShare-sub001/internal/models"
	"github.com/TryOmar/LabShare-sub001/internal/security"
	"github.com/TryOmar/LabShare-sub001/internal/services"
	"github.com/TryOmar/LabShare-sub001/pkg/mail"
	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

// MaintenanceKey is the operator key the test router accepts.
const MaintenanceKey = "test-maintenance-key"

// DefaultUserAgent is attached to requests unless a test overrides it.
const DefaultUserAgent = "labshare-test-agent/1.0"

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// CapturingMailer records outbound messages instead of delivering them.
type CapturingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *CapturingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *CapturingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Env wraps a fully-wired API instance backed by an in-memory database.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Mailer *CapturingMailer
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	mailer := &CapturingMailer{}

	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	cfg.Maintenance.AdminKey = MaintenanceKey

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   "handler-test-secret",
		Issuer:   "labshare-test",
		TokenTTL: time.Hour,
	})
	require.NoError(t, err)

	events, err := services.NewAuthEventService(db)
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(db, auth.SessionConfig{Events: events})
	require.NoError(t, err)

	codes, err := auth.NewOTPService(db, mailer)
	require.NoError(t, err)

	students, err := services.NewStudentService(db)
	require.NoError(t, err)

	cleanup, err := maintenance.NewScheduler(db)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:       db,
		Config:   cfg,
		Students: students,
		Events:   events,
		Codes:    codes,
		Sessions: sessions,
		Tokens:   tokens,
		Cleanup:  cleanup,
		Audit:    security.NewAuditService(db, cfg),
	})
	require.NoError(t, err)

	return &Env{T: t, DB: db, Router: router, Mailer: mailer}
}

var studentCounter int64

// CreateStudent inserts an active roster entry with a unique email.
func (e *Env) CreateStudent() *models.Student {
	e.T.Helper()

	n := atomic.AddInt64(&studentCounter, 1)
	student := &models.Student{
		Email:         fmt.Sprintf("student%d@labshare.test", n),
		FullName:      fmt.Sprintf("Student %d", n),
		StudentNumber: fmt.Sprintf("2025%05d", n),
	}
	require.NoError(e.T, e.DB.Create(student).Error)
	return student
}

// LastEmailedCode extracts the sign-in code from the most recent message to
// the given address.
func (e *Env) LastEmailedCode(email string) string {
	e.T.Helper()

	messages := e.Mailer.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].To != email {
			continue
		}
		code := codePattern.FindString(messages[i].Body)
		require.NotEmpty(e.T, code, "message body carries no code: %q", messages[i].Body)
		return code
	}

	e.T.Fatalf("no message delivered to %s", email)
	return ""
}

// Login walks the full passwordless flow and returns the credential cookies.
func (e *Env) Login(student *models.Student) []*http.Cookie {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{"email": student.Email}, nil)
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	code := e.LastEmailedCode(student.Email)
	w = e.Request(http.MethodPost, "/api/auth/verify", map[string]string{
		"email": student.Email,
		"code":  code,
	}, nil)
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	cookies := CredentialCookies(w)
	require.NotNil(e.T, cookies[middleware.TokenCookieName])
	require.NotNil(e.T, cookies[middleware.DeviceCookieName])
	return []*http.Cookie{cookies[middleware.TokenCookieName], cookies[middleware.DeviceCookieName]}
}

// CredentialCookies indexes the response's cookies by name.
func CredentialCookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

// Request executes a JSON request against the test router.
func (e *Env) Request(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	return e.request(method, path, body, cookies, nil)
}

// MaintenanceRequest executes a request carrying the operator key header.
func (e *Env) MaintenanceRequest(method, path string, body any) *httptest.ResponseRecorder {
	return e.request(method, path, body, nil, map[string]string{"X-Maintenance-Key": MaintenanceKey})
}

func (e *Env) request(method, path string, body any, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// APIResponse mirrors the canonical handler envelope.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API envelope from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into dest.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}
