package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TryOmar/LabShare-sub001/internal/app/maintenance"
	"github.com/TryOmar/LabShare-sub001/internal/auth"
	"github.com/TryOmar/LabShare-sub001/internal/middleware"
	"github.com/TryOmar/LabShare-sub001/internal/models"
	"github.com/TryOmar/LabShare-sub001/internal/services"
	appErrors "github.com/TryOmar/LabShare-sub001/pkg/errors"
	"github.com/TryOmar/LabShare-sub001/pkg/logger"
	"github.com/TryOmar/LabShare-sub001/pkg/response"
)

const lazyCleanupTimeout = time.Minute

// AuthDeps collects the collaborators the auth handler needs.
type AuthDeps struct {
	Students *services.StudentService
	Events   *services.AuthEventService
	Codes    *auth.OTPService
	Sessions *auth.SessionService
	Tokens   *auth.TokenService
	Cleanup  *maintenance.Scheduler
	Cookies  middleware.CookieOptions
}

// AuthHandler implements the passwordless sign-in flow: an emailed one-time
// code upgrades into a device-bound session carried by the cookie pair.
type AuthHandler struct {
	students *services.StudentService
	events   *services.AuthEventService
	codes    *auth.OTPService
	sessions *auth.SessionService
	tokens   *auth.TokenService
	cleanup  *maintenance.Scheduler
	cookies  middleware.CookieOptions
	log      *zap.Logger
}

func NewAuthHandler(deps AuthDeps) (*AuthHandler, error) {
	switch {
	case deps.Students == nil:
		return nil, fmt.Errorf("auth handler: student service is required")
	case deps.Codes == nil:
		return nil, fmt.Errorf("auth handler: otp service is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("auth handler: session service is required")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("auth handler: token service is required")
	}

	return &AuthHandler{
		students: deps.Students,
		events:   deps.Events,
		codes:    deps.Codes,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		cleanup:  deps.Cleanup,
		cookies:  deps.Cookies,
		log:      logger.WithModule("handlers.auth"),
	}, nil
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// POST /api/auth/login
// Issues a one-time sign-in code and emails it to the student. The code
// value never appears in the response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx := requestContext(c)

	student, err := h.students.FindActiveByEmail(ctx, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.codes.Issue(ctx, student); err != nil {
		h.log.Error("issue sign-in code", zap.String("student_id", student.ID), zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	h.recordEvent(c, &student.ID, services.AuthEventCodeIssued, services.AuthResultSuccess, nil)

	response.Success(c, http.StatusOK, gin.H{
		"message": "A sign-in code has been sent to your email address",
	})
}

// POST /api/auth/verify
// Exchanges a valid code for a session bound to this device. On success the
// bearer token and fingerprint cookies are installed and the student payload
// is returned.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx := requestContext(c)

	student, err := h.students.FindActiveByEmail(ctx, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.codes.Verify(ctx, student.ID, req.Code); err != nil {
		h.recordEvent(c, &student.ID, services.AuthEventCodeRejected, services.AuthResultFailure, nil)
		if errors.Is(err, auth.ErrCodeMalformed) || errors.Is(err, auth.ErrCodeInvalid) {
			response.Error(c, appErrors.ErrCodeInvalid)
		} else {
			h.log.Error("verify sign-in code", zap.String("student_id", student.ID), zap.Error(err))
			response.Error(c, appErrors.ErrInternalServer)
		}
		return
	}

	fingerprint, err := auth.Fingerprint(c.Request.UserAgent())
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	session, err := h.sessions.Create(ctx, student.ID, fingerprint, auth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.log.Error("create session", zap.String("student_id", student.ID), zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	token, err := h.tokens.Issue(session.ID)
	if err != nil {
		h.log.Error("issue token", zap.String("session_id", session.ID), zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	if err := h.students.MarkLogin(ctx, student.ID, session.CreatedAt); err != nil {
		h.log.Warn("stamp last login", zap.String("student_id", student.ID), zap.Error(err))
	}

	h.recordEvent(c, &student.ID, services.AuthEventLogin, services.AuthResultSuccess, map[string]any{
		"session_id": session.ID,
	})

	middleware.SetAuthCookies(c, h.cookies, token, fingerprint)
	h.scheduleLazyCleanup()

	response.Success(c, http.StatusOK, gin.H{"student": studentPayload(student)})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.Revoke(requestContext(c), sessionID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		h.log.Error("revoke session", zap.String("session_id", sessionID), zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	if studentID, ok := middleware.StudentID(c); ok {
		h.recordEvent(c, &studentID, services.AuthEventLogout, services.AuthResultSuccess, map[string]any{
			"session_id": sessionID,
		})
	}

	middleware.ClearAuthCookies(c, h.cookies)
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// POST /api/auth/logout_all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	studentID, ok := middleware.StudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.sessions.RevokeAll(requestContext(c), studentID)
	if err != nil {
		h.log.Error("revoke all sessions", zap.String("student_id", studentID), zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	h.recordEvent(c, &studentID, services.AuthEventLogoutAll, services.AuthResultSuccess, map[string]any{
		"sessions_revoked": count,
	})

	middleware.ClearAuthCookies(c, h.cookies)
	response.Success(c, http.StatusOK, gin.H{"revoked": count})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	studentID, ok := middleware.StudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.students.FindByID(requestContext(c), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, studentPayload(student))
}

// GET /api/auth/sessions
// Lists the student's live sessions so they can see what "log out everywhere"
// would revoke. Fingerprints stay server-side.
func (h *AuthHandler) Sessions(c *gin.Context) {
	studentID, ok := middleware.StudentID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sessions, err := h.sessions.ListActive(requestContext(c), studentID)
	if err != nil {
		h.log.Error("list sessions", zap.String("student_id", studentID), zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	current, _ := middleware.SessionID(c)
	payload := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		payload = append(payload, gin.H{
			"id":           s.ID,
			"ip_address":   s.IPAddress,
			"user_agent":   s.UserAgent,
			"created_at":   s.CreatedAt,
			"last_seen_at": s.LastSeenAt,
			"current":      s.ID == current,
		})
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": payload})
}

func (h *AuthHandler) recordEvent(c *gin.Context, studentID *string, action, result string, metadata map[string]any) {
	if h.events == nil {
		return
	}

	entry := services.AuthEventEntry{
		StudentID: studentID,
		Action:    action,
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata:  metadata,
	}
	if err := h.events.Record(requestContext(c), entry); err != nil {
		h.log.Warn("record auth event", zap.String("action", action), zap.Error(err))
	}
}

// scheduleLazyCleanup piggybacks a throttled retention sweep on successful
// logins. It runs off the request path; failures are logged and swallowed.
func (h *AuthHandler) scheduleLazyCleanup() {
	if h.cleanup == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lazyCleanupTimeout)
		defer cancel()

		if _, err := h.cleanup.RunLazy(ctx); err != nil {
			h.log.Warn("lazy cleanup", zap.Error(err))
		}
	}()
}

func studentPayload(s *models.Student) gin.H {
	return gin.H{
		"id":             s.ID,
		"email":          s.Email,
		"full_name":      s.FullName,
		"student_number": s.StudentNumber,
		"last_login_at":  s.LastLoginAt,
	}
}
