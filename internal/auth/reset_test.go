package auth

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/models"
)

// withEmail attaches a verified email to a registered user so the reset
// flow can find them
func (suite *AuthServiceTestSuite) withEmail(userID, email string) {
	err := suite.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("email", email).Error
	require.NoError(suite.T(), err)
}

func (suite *AuthServiceTestSuite) TestStartResetUnknownEmail() {
	t := suite.T()
	err := suite.svc.StartReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, apperrors.UserNotFound())
}

func (suite *AuthServiceTestSuite) TestStartResetMailsCodeOnce() {
	t := suite.T()
	user, _ := suite.register("riley")
	suite.withEmail(user.ID, "riley@example.com")

	require.NoError(t, suite.svc.StartReset(context.Background(), "riley@example.com"))
	assert.Equal(t, "riley@example.com", suite.mailer.lastEmail)
	assert.Len(t, suite.mailer.lastCode, 6)

	// A second start while the challenge is in flight is a conflict
	err := suite.svc.StartReset(context.Background(), "riley@example.com")
	assert.ErrorIs(t, err, apperrors.ChallengeAlreadyActive())
}

func (suite *AuthServiceTestSuite) TestResetRetryBudgetIsTerminal() {
	t := suite.T()
	user, _ := suite.register("riley")
	suite.withEmail(user.ID, "riley@example.com")
	require.NoError(t, suite.svc.StartReset(context.Background(), "riley@example.com"))
	code := suite.mailer.lastCode

	// Three wrong guesses consume the budget
	for i := 0; i < 3; i++ {
		err := suite.svc.CheckResetCode(context.Background(), "riley@example.com", "000000x")
		assert.ErrorIs(t, err, apperrors.IncorrectCode())
	}

	// The fourth attempt burns the challenge, even with the right code
	err := suite.svc.CheckResetCode(context.Background(), "riley@example.com", code)
	assert.ErrorIs(t, err, apperrors.TooManyAttempts())

	// After the burn nothing remains to check against
	err = suite.svc.CheckResetCode(context.Background(), "riley@example.com", code)
	assert.ErrorIs(t, err, apperrors.ChallengeExpiredOrMissing())

	// And confirmation is locked out
	_, _, err = suite.svc.ConfirmReset(context.Background(), "riley@example.com", "newpassword456", "", "")
	assert.ErrorIs(t, err, apperrors.NotVerified())
}

func (suite *AuthServiceTestSuite) TestResetHappyPath() {
	t := suite.T()
	user, _ := suite.register("riley")
	suite.withEmail(user.ID, "riley@example.com")
	require.NoError(t, suite.svc.StartReset(context.Background(), "riley@example.com"))
	code := suite.mailer.lastCode

	// One wrong guess does not kill the challenge
	err := suite.svc.CheckResetCode(context.Background(), "riley@example.com", "0000000")
	assert.ErrorIs(t, err, apperrors.IncorrectCode())

	require.NoError(t, suite.svc.CheckResetCode(context.Background(), "riley@example.com", code))

	// The code is consumed by a successful check
	err = suite.svc.CheckResetCode(context.Background(), "riley@example.com", code)
	assert.ErrorIs(t, err, apperrors.ChallengeExpiredOrMissing())

	confirmed, pair, err := suite.svc.ConfirmReset(context.Background(), "riley@example.com", "newpassword456", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, user.ID, confirmed.ID)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err = suite.svc.Login(context.Background(), LoginRequest{Username: "riley", Password: "password123"}, "", "")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials())
	_, _, err = suite.svc.Login(context.Background(), LoginRequest{Username: "riley", Password: "newpassword456"}, "", "")
	assert.NoError(t, err)

	// The verified flag is single-use
	_, _, err = suite.svc.ConfirmReset(context.Background(), "riley@example.com", "anotherpass789", "", "")
	assert.ErrorIs(t, err, apperrors.NotVerified())
}

func (suite *AuthServiceTestSuite) TestConfirmWithoutCheck() {
	t := suite.T()
	user, _ := suite.register("riley")
	suite.withEmail(user.ID, "riley@example.com")
	require.NoError(t, suite.svc.StartReset(context.Background(), "riley@example.com"))

	_, _, err := suite.svc.ConfirmReset(context.Background(), "riley@example.com", "newpassword456", "", "")
	assert.ErrorIs(t, err, apperrors.NotVerified())
}

func (suite *AuthServiceTestSuite) TestSendVerifyEmail() {
	t := suite.T()
	user, _ := suite.register("riley")

	require.NoError(t, suite.svc.SendVerifyEmail(context.Background(), user.ID, "riley@example.com"))
	assert.Equal(t, "riley@example.com", suite.mailer.lastEmail)

	link, err := url.Parse(suite.mailer.lastLink)
	require.NoError(t, err)
	assert.Equal(t, user.ID, link.Query().Get("userId"))
	code := link.Query().Get("code")
	require.NotEmpty(t, code)

	err = suite.svc.VerifyEmail(context.Background(), user.ID, "wrong-code")
	assert.ErrorIs(t, err, apperrors.IncorrectCode())

	require.NoError(t, suite.svc.VerifyEmail(context.Background(), user.ID, code))

	var stored models.User
	require.NoError(t, suite.db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.Email)
	assert.Equal(t, "riley@example.com", *stored.Email)

	// The challenge is consumed
	err = suite.svc.VerifyEmail(context.Background(), user.ID, code)
	assert.ErrorIs(t, err, apperrors.ChallengeExpiredOrMissing())
}

func (suite *AuthServiceTestSuite) TestSendVerifyEmailConflicts() {
	t := suite.T()
	alice, _ := suite.register("alice")
	suite.withEmail(alice.ID, "alice@example.com")

	bob, _ := suite.register("bob")
	err := suite.svc.SendVerifyEmail(context.Background(), bob.ID, "alice@example.com")
	assert.ErrorIs(t, err, apperrors.EmailTaken())

	// Alice already has an address attached
	err = suite.svc.SendVerifyEmail(context.Background(), alice.ID, "new@example.com")
	assert.ErrorIs(t, err, apperrors.EmailAlreadySet())
}
