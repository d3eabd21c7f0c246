package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/auth"
	"github.com/ripplefeed/backend/internal/util"
)

// Register creates an account and opens its first session
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	user, pair, err := h.auth.Register(c.Request.Context(), req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		util.RespondError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusCreated, gin.H{
		"user":         userResponse(user),
		"access_token": pair.AccessToken,
		"expires_at":   pair.AccessExpiresAt,
		"session_id":   pair.SessionID,
	})
}

// Login authenticates with username/password
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	user, pair, err := h.auth.Login(c.Request.Context(), req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		util.RespondError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"user":         userResponse(user),
		"access_token": pair.AccessToken,
		"expires_at":   pair.AccessExpiresAt,
		"session_id":   pair.SessionID,
	})
}

// Refresh exchanges the refresh cookie for a fresh token pair. Any
// invalid or expired presentation clears both cookies so the browser
// stops replaying a dead value.
func (h *Handlers) Refresh(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		h.clearAuthCookies(c)
		util.RespondWithAPIError(c, apperrors.SessionInvalid())
		return
	}

	pair, err := h.auth.Rotate(c.Request.Context(), presented, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, apperrors.SessionInvalid()) {
			h.clearAuthCookies(c)
		}
		util.RespondError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"access_token": pair.AccessToken,
		"expires_at":   pair.AccessExpiresAt,
		"session_id":   pair.SessionID,
	})
}

// Logout revokes the presented session and clears both cookies.
// Idempotent: logging out with no live session still succeeds.
func (h *Handlers) Logout(c *gin.Context) {
	if presented, err := c.Cookie(refreshCookie); err == nil && presented != "" {
		if err := h.auth.Revoke(c.Request.Context(), presented); err != nil {
			util.RespondError(c, err)
			return
		}
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// LogoutOthers revokes every session of the caller except the one that
// presented the refresh cookie
func (h *Handlers) LogoutOthers(c *gin.Context) {
	userID := c.GetString("user_id")

	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		util.RespondWithAPIError(c, apperrors.SessionInvalid())
		return
	}

	if err := h.auth.RevokeOthers(c.Request.Context(), userID, presented); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "other_sessions_revoked"})
}

// ChangePassword rotates the password for a logged-in user
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	userID := c.GetString("user_id")
	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_changed"})
}

// StartReset begins the mailed password reset challenge
func (h *Handlers) StartReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	if err := h.auth.StartReset(c.Request.Context(), req.Email); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "code_sent"})
}

// CheckResetCode verifies the mailed code
func (h *Handlers) CheckResetCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	if err := h.auth.CheckResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "code_verified"})
}

// ConfirmReset sets the new password and logs the user in
func (h *Handlers) ConfirmReset(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	user, pair, err := h.auth.ConfirmReset(c.Request.Context(), req.Email, req.NewPassword, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		util.RespondError(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{
		"user":         userResponse(user),
		"access_token": pair.AccessToken,
		"expires_at":   pair.AccessExpiresAt,
		"session_id":   pair.SessionID,
	})
}

// SendVerifyEmail stages an email address behind a mailed confirmation link
func (h *Handlers) SendVerifyEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	userID := c.GetString("user_id")
	if err := h.auth.SendVerifyEmail(c.Request.Context(), userID, req.Email); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verification_sent"})
}

// VerifyEmail consumes the mailed link code and persists the address.
// Unauthenticated: the link may be opened in a browser with no session.
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Code   string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, err.Error())
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), req.UserID, req.Code); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "email_verified"})
}
