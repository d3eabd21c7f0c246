package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ripplefeed/backend/internal/auth"
	"github.com/ripplefeed/backend/internal/config"
	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/models"
	"github.com/ripplefeed/backend/internal/util"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	// The refresh value only ever travels to the rotation endpoints, so
	// its cookie is scoped to the auth group while the access cookie
	// rides on every request.
	accessCookiePath  = "/"
	refreshCookiePath = "/api/v1/auth"
)

// Handlers carries the service dependencies for all HTTP endpoints
type Handlers struct {
	auth       *auth.Service
	engagement *engagement.Service
	cfg        *config.Config
}

// New creates the handler set
func New(authSvc *auth.Service, engagementSvc *engagement.Service, cfg *config.Config) *Handlers {
	return &Handlers{
		auth:       authSvc,
		engagement: engagementSvc,
		cfg:        cfg,
	}
}

// AuthMiddleware validates the access JWT from the cookie or the
// Authorization header and stashes the bound ids in the gin context
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}

		userID, sessionID, err := h.auth.ValidateAccessToken(token)
		if err != nil {
			util.RespondUnauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("session_id", sessionID)
		c.Next()
	}
}

// bearerToken pulls the access JWT from the cookie, falling back to a
// Bearer Authorization header for non-browser clients
func bearerToken(c *gin.Context) string {
	if token, err := c.Cookie(accessCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// optionalUserID identifies the caller when a valid token rides along but
// never rejects the request; anonymous reads are first-class.
func (h *Handlers) optionalUserID(c *gin.Context) string {
	token := bearerToken(c)
	if token == "" {
		return ""
	}
	userID, _, err := h.auth.ValidateAccessToken(token)
	if err != nil {
		return ""
	}
	return userID
}

func (h *Handlers) setAuthCookies(c *gin.Context, pair *auth.TokenPair) {
	secure := h.cfg.IsProduction()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, pair.AccessToken,
		int(time.Until(pair.AccessExpiresAt).Seconds()), accessCookiePath, "", secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken,
		int(time.Until(pair.RefreshExpiresAt).Seconds()), refreshCookiePath, "", secure, true)
}

func (h *Handlers) clearAuthCookies(c *gin.Context) {
	secure := h.cfg.IsProduction()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, "", -1, accessCookiePath, "", secure, true)
	c.SetCookie(refreshCookie, "", -1, refreshCookiePath, "", secure, true)
}

// userResponse is the public shape of a user record
func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"created_at": user.CreatedAt,
	}
}
