package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/mail"
	"github.com/ripplefeed/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service handles credentials and the refresh-token session lifecycle
type Service struct {
	challenges ChallengeStore
	mailer     mail.Mailer
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	baseURL    string
}

// NewService creates a new authentication service
func NewService(challenges ChallengeStore, mailer mail.Mailer, jwtSecret []byte, accessTTL, refreshTTL time.Duration, baseURL string) *Service {
	return &Service{
		challenges: challenges,
		mailer:     mailer,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		baseURL:    baseURL,
	}
}

// TokenPair is what a successful login, registration or rotation yields.
// RefreshToken is the raw opaque value; it is never persisted anywhere
// except as the session row's live lookup column.
type TokenPair struct {
	SessionID        string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=30"`
	FirstName string `json:"first_name" binding:"required,min=1,max=50"`
	LastName  string `json:"last_name" binding:"required,min=1,max=50"`
	Password  string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a user and opens their first session
func (s *Service) Register(ctx context.Context, req RegisterRequest, ip, agent string) (*models.User, *TokenPair, error) {
	var existing models.User
	err := database.DB.WithContext(ctx).Where("LOWER(username) = LOWER(?)", req.Username).First(&existing).Error
	if err == nil {
		return nil, nil, apperrors.UsernameTaken()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hashed),
	}
	if err := database.DB.WithContext(ctx).Create(&user).Error; err != nil {
		// Unique index backstop for the check-then-create race
		return nil, nil, apperrors.UsernameTaken().WithDetails(err.Error())
	}

	pair, err := s.Issue(ctx, user.ID, ip, agent)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Login authenticates with username/password and opens a session
func (s *Service) Login(ctx context.Context, req LoginRequest, ip, agent string) (*models.User, *TokenPair, error) {
	var user models.User
	err := database.DB.WithContext(ctx).Where("LOWER(username) = LOWER(?)", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperrors.InvalidCredentials()
	} else if err != nil {
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, apperrors.InvalidCredentials()
	}

	pair, err := s.Issue(ctx, user.ID, ip, agent)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Issue opens a brand-new session for the user and mints its first token pair
func (s *Service) Issue(ctx context.Context, userID, ip, agent string) (*TokenPair, error) {
	refresh, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	session := models.Session{
		UserID:    userID,
		TokenHash: refresh,
		ExpiresAt: time.Now().UTC().Add(s.refreshTTL),
		IP:        ip,
		UserAgent: agent,
	}
	if err := database.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.mintPair(&session, refresh)
}

// Rotate exchanges a presented refresh value for a fresh token pair.
//
// The session row keeps its id but the lookup value moves on, so the old
// refresh value is usable exactly once: any replay after rotation misses
// the lookup entirely and fails SessionInvalid.
func (s *Service) Rotate(ctx context.Context, presented, ip, agent string) (*TokenPair, error) {
	var session models.Session
	err := database.DB.WithContext(ctx).Where("token_hash = ?", presented).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.SessionInvalid()
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if session.ExpiresAt.Before(time.Now().UTC()) {
		// Opportunistic cleanup; best effort, never blocks the failure
		if delErr := database.DB.WithContext(ctx).Delete(&models.Session{}, "id = ?", session.ID).Error; delErr != nil {
			logger.Log.Warn("failed to delete expired session during rotation",
				zap.String("session_id", session.ID),
				zap.Error(delErr),
			)
		}
		return nil, apperrors.SessionInvalid()
	}

	refresh, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	session.TokenHash = refresh
	session.ExpiresAt = time.Now().UTC().Add(s.refreshTTL)
	session.IP = ip
	session.UserAgent = agent

	// Last write wins if two rotations of the same value race; a
	// legitimate client never rotates one token concurrently.
	err = database.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"token_hash": session.TokenHash,
			"expires_at": session.ExpiresAt,
			"ip":         session.IP,
			"user_agent": session.UserAgent,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return s.mintPair(&session, refresh)
}

// Revoke deletes the session owning the presented refresh value (logout)
func (s *Service) Revoke(ctx context.Context, presented string) error {
	return database.DB.WithContext(ctx).Delete(&models.Session{}, "token_hash = ?", presented).Error
}

// RevokeOthers deletes every session of the user except the presented one
func (s *Service) RevokeOthers(ctx context.Context, userID, keepTokenValue string) error {
	return database.DB.WithContext(ctx).
		Delete(&models.Session{}, "user_id = ? AND token_hash <> ?", userID, keepTokenValue).Error
}

// ChangePassword rotates the durable password hash for a logged-in user
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == newPassword {
		return apperrors.PasswordsMustDiffer()
	}

	var user models.User
	err := database.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.UserNotFound()
	} else if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.InvalidCredentials()
	}

	return s.updatePassword(ctx, &user, newPassword)
}

// ValidateAccessToken parses and verifies an access JWT, returning the
// bound user and session ids
func (s *Service) ValidateAccessToken(tokenString string) (userID, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token claims")
	}

	userID, ok = claims["user_id"].(string)
	if !ok {
		return "", "", errors.New("invalid user_id in token")
	}
	sessionID, ok = claims["session_id"].(string)
	if !ok {
		return "", "", errors.New("invalid session_id in token")
	}

	return userID, sessionID, nil
}

// mintPair signs an access token bound to the session id
func (s *Service) mintPair(session *models.Session, refresh string) (*TokenPair, error) {
	accessExpiresAt := time.Now().UTC().Add(s.accessTTL)

	claims := jwt.MapClaims{
		"session_id": session.ID,
		"user_id":    session.UserID,
		"exp":        accessExpiresAt.Unix(),
		"iat":        time.Now().UTC().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenPair{
		SessionID:        session.ID,
		AccessToken:      signed,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) updatePassword(ctx context.Context, user *models.User, newPassword string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return database.DB.WithContext(ctx).Model(user).
		Update("password_hash", string(hashed)).Error
}

// generateOpaqueToken returns a 64-char hex refresh value
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
