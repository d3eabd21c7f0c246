package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	challengeTTL  = 15 * time.Minute
	maxResetTries = 3
	resetCodeLen  = 6
)

func resetCodeKey(userID string) string  { return "reset:code:" + userID }
func resetTriesKey(userID string) string { return "reset:tries:" + userID }
func resetOKKey(userID string) string    { return "reset:ok:" + userID }

// StartReset begins the three-phase reset challenge: it writes the hashed
// code and a zeroed retry counter in one atomic batch, then mails the
// plaintext code. The plaintext is never stored or logged.
func (s *Service) StartReset(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}

	// An in-flight challenge or an unconsumed verified flag blocks a new
	// code: restarting would spam mail and clobber a verified state.
	active, err := s.challenges.Exists(ctx, resetCodeKey(user.ID), resetOKKey(user.ID))
	if err != nil {
		return apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	if active {
		return apperrors.ChallengeAlreadyActive()
	}

	code, err := generateNumericCode(resetCodeLen)
	if err != nil {
		return apperrors.Internal("failed to generate code")
	}

	err = s.challenges.SetBatch(ctx, challengeTTL, map[string]string{
		resetCodeKey(user.ID):  hashCode(code),
		resetTriesKey(user.ID): "0",
	})
	if err != nil {
		return apperrors.Internal("failed to store reset challenge").WithDetails(err.Error())
	}

	name := user.FirstName + " " + user.LastName
	if err := s.mailer.SendResetCode(ctx, email, name, code); err != nil {
		return apperrors.Internal("failed to send reset code").WithDetails(err.Error())
	}

	logger.Log.Info("password reset challenge started", logger.WithUserID(user.ID))
	return nil
}

// CheckResetCode verifies the submitted code against the stored hash under
// a bounded retry budget. The third wrong attempt burns the challenge: the
// caller must restart from StartReset.
func (s *Service) CheckResetCode(ctx context.Context, email, code string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}

	storedHash, hashOK, err := s.challenges.Get(ctx, resetCodeKey(user.ID))
	if err != nil {
		return apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	triesRaw, triesOK, err := s.challenges.Get(ctx, resetTriesKey(user.ID))
	if err != nil {
		return apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	if !hashOK || !triesOK {
		return apperrors.ChallengeExpiredOrMissing()
	}

	tries, _ := strconv.Atoi(triesRaw)
	if tries >= maxResetTries {
		if err := s.challenges.Del(ctx, resetCodeKey(user.ID), resetTriesKey(user.ID)); err != nil {
			logger.Log.Warn("failed to clear burned reset challenge",
				logger.WithUserID(user.ID), zap.Error(err))
		}
		return apperrors.TooManyAttempts()
	}

	if hashCode(code) != storedHash {
		if _, err := s.challenges.Incr(ctx, resetTriesKey(user.ID)); err != nil {
			return apperrors.Internal("cache store unreachable").WithDetails(err.Error())
		}
		return apperrors.IncorrectCode()
	}

	// Consume the challenge and raise the verified flag in one transaction
	err = s.challenges.SetBatch(ctx, challengeTTL,
		map[string]string{resetOKKey(user.ID): "1"},
		resetCodeKey(user.ID), resetTriesKey(user.ID),
	)
	if err != nil {
		return apperrors.Internal("failed to promote reset challenge").WithDetails(err.Error())
	}

	return nil
}

// ConfirmReset consumes the single-use verified flag, rotates the durable
// password hash and opens a fresh session as if the user had just logged in.
func (s *Service) ConfirmReset(ctx context.Context, email, newPassword, ip, agent string) (*models.User, *TokenPair, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	_, verified, err := s.challenges.Get(ctx, resetOKKey(user.ID))
	if err != nil {
		return nil, nil, apperrors.Internal("cache store unreachable").WithDetails(err.Error())
	}
	if !verified {
		return nil, nil, apperrors.NotVerified()
	}

	if err := s.challenges.Del(ctx, resetOKKey(user.ID)); err != nil {
		return nil, nil, apperrors.Internal("failed to consume verified flag").WithDetails(err.Error())
	}

	if err := s.updatePassword(ctx, user, newPassword); err != nil {
		return nil, nil, err
	}

	pair, err := s.Issue(ctx, user.ID, ip, agent)
	if err != nil {
		return nil, nil, err
	}

	logger.Log.Info("password reset confirmed", logger.WithUserID(user.ID))
	return user, pair, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := database.DB.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.UserNotFound()
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// hashCode is the sha-256 hex digest challenge codes are stored under
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateNumericCode returns a zero-padded random numeric code
func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
