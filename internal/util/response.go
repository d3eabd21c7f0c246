package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("details", apiErr.Details),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
		)
	}

	c.JSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

// RespondError classifies any error and sends it. Unknown errors come out
// as a 500 with a generic message so internals never leak.
func RespondError(c *gin.Context, err error) {
	RespondWithAPIError(c, apperrors.AsAPIError(err))
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, apperrors.Unauthorized(msg))
}

// RespondValidationError sends a 400 for malformed request bodies
func RespondValidationError(c *gin.Context, message string) {
	RespondWithAPIError(c, apperrors.ValidationError(message))
}
