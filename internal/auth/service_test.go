package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeChallengeStore is an in-memory ChallengeStore for tests
type fakeChallengeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{data: make(map[string]string)}
}

func (f *fakeChallengeStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	return val, ok, nil
}

func (f *fakeChallengeStore) Exists(ctx context.Context, keys ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChallengeStore) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeChallengeStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeChallengeStore) SetBatch(ctx context.Context, ttl time.Duration, pairs map[string]string, delKeys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range delKeys {
		delete(f.data, key)
	}
	for key, value := range pairs {
		f.data[key] = value
	}
	return nil
}

// fakeMailer captures outbound mail so tests can read the codes
type fakeMailer struct {
	mu        sync.Mutex
	lastCode  string
	lastLink  string
	lastEmail string
}

func (f *fakeMailer) SendResetCode(ctx context.Context, toEmail, name, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEmail = toEmail
	f.lastCode = code
	return nil
}

func (f *fakeMailer) SendVerifyEmail(ctx context.Context, toEmail, name, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEmail = toEmail
	f.lastLink = link
	return nil
}

// AuthServiceTestSuite contains the credential and session lifecycle tests
type AuthServiceTestSuite struct {
	suite.Suite
	db         *gorm.DB
	challenges *fakeChallengeStore
	mailer     *fakeMailer
	svc        *Service
}

func (suite *AuthServiceTestSuite) SetupSuite() {
	logger.InitializeForTests()

	db, err := gorm.Open(sqlite.Open("file:authsvc?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	database.DB = db
	suite.db = db

	err = db.AutoMigrate(&models.User{}, &models.Session{})
	require.NoError(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TearDownSuite() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM sessions")
	suite.db.Exec("DELETE FROM users")
	suite.challenges = newFakeChallengeStore()
	suite.mailer = &fakeMailer{}
	suite.svc = NewService(suite.challenges, suite.mailer,
		[]byte("test_jwt_secret_key"), time.Minute, 30*24*time.Hour, "http://localhost:3000")
}

func (suite *AuthServiceTestSuite) register(username string) (*models.User, *TokenPair) {
	t := suite.T()
	user, pair, err := suite.svc.Register(context.Background(), RegisterRequest{
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "password123",
	}, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotNil(t, pair)
	return user, pair
}

func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	t := suite.T()
	user, pair := suite.register("riley")

	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 64)

	// Duplicate username, case-insensitive
	_, _, err := suite.svc.Register(context.Background(), RegisterRequest{
		Username: "RILEY", FirstName: "A", LastName: "B", Password: "password123",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.UsernameTaken())

	// Wrong password
	_, _, err = suite.svc.Login(context.Background(), LoginRequest{
		Username: "riley", Password: "wrong-password",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials())

	// Unknown user looks identical to a wrong password
	_, _, err = suite.svc.Login(context.Background(), LoginRequest{
		Username: "nobody", Password: "password123",
	}, "", "")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials())

	loggedIn, loginPair, err := suite.svc.Login(context.Background(), LoginRequest{
		Username: "riley", Password: "password123",
	}, "10.0.0.2", "other-agent")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEqual(t, pair.SessionID, loginPair.SessionID)
}

func (suite *AuthServiceTestSuite) TestRotatePreservesSessionIdentity() {
	t := suite.T()
	_, pair := suite.register("riley")

	rotated, err := suite.svc.Rotate(context.Background(), pair.RefreshToken, "10.0.0.9", "new-agent")
	require.NoError(t, err)

	// Same session, new refresh value
	assert.Equal(t, pair.SessionID, rotated.SessionID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	var count int64
	suite.db.Model(&models.Session{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var session models.Session
	require.NoError(t, suite.db.First(&session, "id = ?", pair.SessionID).Error)
	assert.Equal(t, "10.0.0.9", session.IP)
	assert.Equal(t, "new-agent", session.UserAgent)
}

func (suite *AuthServiceTestSuite) TestRotatedValueIsSingleUse() {
	t := suite.T()
	_, pair := suite.register("riley")

	_, err := suite.svc.Rotate(context.Background(), pair.RefreshToken, "", "")
	require.NoError(t, err)

	// Replaying the pre-rotation value must fail
	_, err = suite.svc.Rotate(context.Background(), pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())
}

func (suite *AuthServiceTestSuite) TestRotateExpiredSessionDeletesRow() {
	t := suite.T()
	_, pair := suite.register("riley")

	// Force the session into the past
	err := suite.db.Model(&models.Session{}).
		Where("id = ?", pair.SessionID).
		Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error
	require.NoError(t, err)

	_, err = suite.svc.Rotate(context.Background(), pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())

	var count int64
	suite.db.Model(&models.Session{}).Where("id = ?", pair.SessionID).Count(&count)
	assert.Equal(t, int64(0), count, "expired session row should be removed on presentation")
}

func (suite *AuthServiceTestSuite) TestRotateUnknownValue() {
	t := suite.T()
	_, err := suite.svc.Rotate(context.Background(), "never-issued", "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())
}

func (suite *AuthServiceTestSuite) TestRevoke() {
	t := suite.T()
	_, pair := suite.register("riley")

	require.NoError(t, suite.svc.Revoke(context.Background(), pair.RefreshToken))

	_, err := suite.svc.Rotate(context.Background(), pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())

	// Revoking again is a no-op, not an error
	assert.NoError(t, suite.svc.Revoke(context.Background(), pair.RefreshToken))
}

func (suite *AuthServiceTestSuite) TestRevokeOthersKeepsPresentedSession() {
	t := suite.T()
	user, keep := suite.register("riley")

	other1, err := suite.svc.Issue(context.Background(), user.ID, "10.0.0.2", "phone")
	require.NoError(t, err)
	other2, err := suite.svc.Issue(context.Background(), user.ID, "10.0.0.3", "tablet")
	require.NoError(t, err)

	require.NoError(t, suite.svc.RevokeOthers(context.Background(), user.ID, keep.RefreshToken))

	var count int64
	suite.db.Model(&models.Session{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	_, err = suite.svc.Rotate(context.Background(), keep.RefreshToken, "", "")
	assert.NoError(t, err)
	_, err = suite.svc.Rotate(context.Background(), other1.RefreshToken, "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())
	_, err = suite.svc.Rotate(context.Background(), other2.RefreshToken, "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())
}

func (suite *AuthServiceTestSuite) TestChangePassword() {
	t := suite.T()
	user, _ := suite.register("riley")

	err := suite.svc.ChangePassword(context.Background(), user.ID, "password123", "password123")
	assert.ErrorIs(t, err, apperrors.PasswordsMustDiffer())

	err = suite.svc.ChangePassword(context.Background(), user.ID, "not-the-password", "newpassword456")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials())

	err = suite.svc.ChangePassword(context.Background(), user.ID, "password123", "newpassword456")
	require.NoError(t, err)

	_, _, err = suite.svc.Login(context.Background(), LoginRequest{
		Username: "riley", Password: "newpassword456",
	}, "", "")
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestValidateAccessToken() {
	t := suite.T()
	user, pair := suite.register("riley")

	userID, sessionID, err := suite.svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, pair.SessionID, sessionID)

	_, _, err = suite.svc.ValidateAccessToken("not.a.jwt")
	assert.Error(t, err)

	// Token signed with a different secret must be rejected
	otherSvc := NewService(suite.challenges, suite.mailer,
		[]byte("other_secret"), time.Minute, time.Hour, "")
	otherPair, err := otherSvc.Issue(context.Background(), user.ID, "", "")
	require.NoError(t, err)
	_, _, err = suite.svc.ValidateAccessToken(otherPair.AccessToken)
	assert.Error(t, err)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
