// PIN gate HTTP handlers.
//
// This file exposes the endpoints reachable while the app is locked:
//   - GET  /auth/status  (PIN configured, masked email, session unlocked)
//   - POST /auth/pin     (create the PIN once)
//   - POST /auth/unlock  (verify the PIN and unlock the session)
//   - POST /auth/lock    (lock the session)
//   - POST /auth/reset   (delete the PIN with the verification code)
//
// The PIN and the reset code may be sent in the body or in the X-PIN and
// X-Reset-Code headers; both headers are masked in access logs.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medremind-core/internal/http/middleware"
	"github.com/tbourn/medremind-core/internal/services"
)

// Header names accepted by the auth endpoints.
const (
	HeaderPIN       = "X-PIN"
	HeaderResetCode = "X-Reset-Code"
)

// AuthStatusResponse reports the PIN gate state.
type AuthStatusResponse struct {
	Configured  bool   `json:"configured"`
	Email       string `json:"email,omitempty" example:"j***@example.com"`
	Unlocked    bool   `json:"unlocked"`
	GateEnabled bool   `json:"gateEnabled"`
}

// CreatePINRequest is the JSON payload for creating a PIN.
type CreatePINRequest struct {
	Email string `json:"email" binding:"required" example:"jane@example.com"`
	PIN   string `json:"pin" binding:"required" example:"1234"`
}

// UnlockRequest carries the PIN when X-PIN is not used.
type UnlockRequest struct {
	PIN string `json:"pin" example:"1234"`
}

// ResetPINRequest carries the verification code when X-Reset-Code is not used.
type ResetPINRequest struct {
	Code string `json:"code" example:"482913"`
}

// AuthStatus godoc
// @ID          authStatus
// @Summary     PIN gate status
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object} handlers.AuthStatusResponse
// @Router      /auth/status [get]
func (h *Handlers) AuthStatus(c *gin.Context) {
	st := h.authSvc.Status(c.Request.Context())
	ok(c, http.StatusOK, AuthStatusResponse{
		Configured:  st.Configured,
		Email:       st.Email,
		Unlocked:    middleware.IsUnlocked(c),
		GateEnabled: h.GateEnabled,
	})
}

// CreatePIN godoc
// @ID          createPIN
// @Summary     Create the PIN
// @Description Stores a 4-digit PIN (bcrypt-hashed) and a recovery email. Only allowed when no PIN exists. Unlocks the session.
// @Tags        Auth
// @Accept      json
//
// @Param       body  body  handlers.CreatePINRequest  true  "Email and PIN"
//
// @Success     201  {string} string "Created"
// @Failure     400  {object} handlers.ErrorResponse "Invalid email or PIN"
// @Failure     409  {object} handlers.ErrorResponse "PIN already configured"
// @Router      /auth/pin [post]
func (h *Handlers) CreatePIN(c *gin.Context) {
	var req CreatePINRequest
	if !bindJSON(c, &req, "email and pin required") {
		return
	}
	if err := h.authSvc.CreatePIN(c.Request.Context(), req.Email, req.PIN); err != nil {
		failErr(c, err)
		return
	}
	h.unlockSession(c)
	c.Status(http.StatusCreated)
}

// Unlock godoc
// @ID          unlock
// @Summary     Unlock with the PIN
// @Tags        Auth
// @Accept      json
//
// @Param       X-PIN  header  string  false "PIN (alternative to the body)"
// @Param       body   body    handlers.UnlockRequest  false  "PIN"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "PIN required"
// @Failure     401  {object} handlers.ErrorResponse "Incorrect PIN"
// @Failure     409  {object} handlers.ErrorResponse "No PIN configured"
// @Router      /auth/unlock [post]
func (h *Handlers) Unlock(c *gin.Context) {
	pin := strings.TrimSpace(c.GetHeader(HeaderPIN))
	if pin == "" {
		var req UnlockRequest
		_ = c.ShouldBindJSON(&req)
		pin = strings.TrimSpace(req.PIN)
	}
	if pin == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pin required")
		return
	}
	if err := h.authSvc.Verify(c.Request.Context(), pin); err != nil {
		if errors.Is(err, services.ErrWrongPIN) {
			middleware.LoggerFrom(c).Warn().Msg("unlock attempt with wrong pin")
		}
		failErr(c, err)
		return
	}
	h.unlockSession(c)
	noContent(c)
}

// Lock godoc
// @ID          lock
// @Summary     Lock the session
// @Tags        Auth
//
// @Success     204  {string} string "No Content"
// @Router      /auth/lock [post]
func (h *Handlers) Lock(c *gin.Context) {
	if err := middleware.ClearUnlocked(c); err != nil && !errors.Is(err, middleware.ErrNoSession) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "session not saved")
		return
	}
	noContent(c)
}

// ResetPIN godoc
// @ID          resetPIN
// @Summary     Reset a forgotten PIN
// @Description Deletes the stored PIN when the verification code matches the configured one, so a new PIN can be created.
// @Tags        Auth
// @Accept      json
//
// @Param       X-Reset-Code  header  string  false "Verification code (alternative to the body)"
// @Param       body          body    handlers.ResetPINRequest  false  "Verification code"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Code required"
// @Failure     401  {object} handlers.ErrorResponse "Incorrect code"
// @Failure     403  {object} handlers.ErrorResponse "Reset disabled"
// @Router      /auth/reset [post]
func (h *Handlers) ResetPIN(c *gin.Context) {
	code := strings.TrimSpace(c.GetHeader(HeaderResetCode))
	if code == "" {
		var req ResetPINRequest
		_ = c.ShouldBindJSON(&req)
		code = strings.TrimSpace(req.Code)
	}
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code required")
		return
	}
	if err := h.authSvc.Reset(c.Request.Context(), code); err != nil {
		failErr(c, err)
		return
	}
	_ = middleware.ClearUnlocked(c)
	middleware.LoggerFrom(c).Warn().Msg("pin reset")
	noContent(c)
}

// unlockSession marks the session unlocked. Failing to save the cookie is
// logged; the caller's operation already succeeded.
func (h *Handlers) unlockSession(c *gin.Context) {
	if err := middleware.MarkUnlocked(c, h.now()); err != nil && !errors.Is(err, middleware.ErrNoSession) {
		middleware.LoggerFrom(c).Error().Err(err).Msg("session not saved")
	}
}
