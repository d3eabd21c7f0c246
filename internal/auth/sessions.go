package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/models"
)

// SessionSummary is what the multi-device view exposes: never the token
// value, always whether the row is the caller's own session.
type SessionSummary struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IsCurrent bool      `json:"is_current_session"`
}

// Sessions lists all of a user's active sessions
func (s *Service) Sessions(ctx context.Context, userID, currentSessionID string) ([]SessionSummary, error) {
	var rows []models.Session
	err := database.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, SessionSummary{
			ID:        row.ID,
			IP:        row.IP,
			UserAgent: row.UserAgent,
			ExpiresAt: row.ExpiresAt,
			CreatedAt: row.CreatedAt,
			IsCurrent: row.ID == currentSessionID,
		})
	}
	return summaries, nil
}

// Terminate force-revokes one of the user's other sessions. The delete is
// scoped to (id, user_id) so one user can never terminate another's session.
func (s *Service) Terminate(ctx context.Context, userID, sessionID, currentSessionID string) error {
	if sessionID == currentSessionID {
		return apperrors.CannotTerminateCurrentSession()
	}

	res := database.DB.WithContext(ctx).
		Delete(&models.Session{}, "id = ? AND user_id = ?", sessionID, userID)
	if res.Error != nil {
		return fmt.Errorf("database error: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.SessionNotFound()
	}
	return nil
}
