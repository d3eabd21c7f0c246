package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ripplefeed/backend/internal/util"
)

// ListSessions returns every live session of the caller, oldest first,
// with the session behind this request flagged
func (h *Handlers) ListSessions(c *gin.Context) {
	userID := c.GetString("user_id")
	sessionID := c.GetString("session_id")

	sessions, err := h.auth.Sessions(c.Request.Context(), userID, sessionID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// TerminateSession revokes one of the caller's other sessions by id
func (h *Handlers) TerminateSession(c *gin.Context) {
	userID := c.GetString("user_id")
	sessionID := c.GetString("session_id")
	targetID := c.Param("id")

	if err := h.auth.Terminate(c.Request.Context(), userID, targetID, sessionID); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "session_terminated"})
}
