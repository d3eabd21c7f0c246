package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/models"
	"gorm.io/gorm"
)

func verifyCodeKey(userID string) string { return "verify:code:" + userID }
func verifyMailKey(userID string) string { return "verify:mail:" + userID }

// SendVerifyEmail stages an email address for the account behind a mailed
// confirmation link. The pending address and the hashed link code land in
// one atomic batch; if the batch fails the mail is never dispatched.
func (s *Service) SendVerifyEmail(ctx context.Context, userID, email string) error {
	var other models.User
	err := database.DB.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&other).Error
	if err == nil {
		return apperrors.EmailTaken()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("database error: %w", err)
	}

	var user models.User
	err = database.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.UserNotFound()
	} else if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if user.Email != nil {
		return apperrors.EmailAlreadySet()
	}

	code, err := generateOpaqueToken()
	if err != nil {
		return apperrors.Internal("failed to generate code")
	}

	err = s.challenges.SetBatch(ctx, challengeTTL, map[string]string{
		verifyCodeKey(userID): hashCode(code),
		verifyMailKey(userID): email,
	})
	if err != nil {
		return apperrors.Internal("failed to store verification state").WithDetails(err.Error())
	}

	link := fmt.Sprintf("%s/verify-email?userId=%s&code=%s", s.baseURL, userID, url.QueryEscape(code))
	name := user.FirstName + " " + user.LastName
	if err := s.mailer.SendVerifyEmail(ctx, email, name, link); err != nil {
		return apperrors.Internal("failed to send verification email").WithDetails(err.Error())
	}

	logger.Log.Info("verification email dispatched", logger.WithUserID(userID))
	return nil
}

// VerifyEmail consumes the mailed code and persists the staged address
func (s *Service) VerifyEmail(ctx context.Context, userID, code string) error {
	storedHash, hashOK, err := s.challenges.Get(ctx, verifyCodeKey(userID))
	if err != nil {
		return apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	email, mailOK, err := s.challenges.Get(ctx, verifyMailKey(userID))
	if err != nil {
		return apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	if !hashOK || !mailOK {
		return apperrors.ChallengeExpiredOrMissing()
	}

	if hashCode(code) != storedHash {
		return apperrors.IncorrectCode()
	}

	err = database.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("email", email).Error
	if err != nil {
		return fmt.Errorf("failed to persist email: %w", err)
	}

	return s.challenges.Del(ctx, verifyCodeKey(userID), verifyMailKey(userID))
}
