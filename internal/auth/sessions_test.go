package auth

import (
	"context"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ripplefeed/backend/internal/apperrors"
	"github.com/ripplefeed/backend/internal/models"
)

func (suite *AuthServiceTestSuite) TestSessionsListedOldestFirst() {
	t := suite.T()
	user, first := suite.register("riley")

	second, err := suite.svc.Issue(context.Background(), user.ID, "10.0.0.2", "phone")
	require.NoError(t, err)

	sessions, err := suite.svc.Sessions(context.Background(), user.ID, second.SessionID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, first.SessionID, sessions[0].ID)
	assert.Equal(t, second.SessionID, sessions[1].ID)
	assert.False(t, sessions[0].IsCurrent)
	assert.True(t, sessions[1].IsCurrent)
	assert.Equal(t, "phone", sessions[1].UserAgent)
}

func (suite *AuthServiceTestSuite) TestSessionsScopedToUser() {
	t := suite.T()
	userA, _ := suite.register("alice")
	userB, _ := suite.register("bob")

	sessions, err := suite.svc.Sessions(context.Background(), userA.ID, "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	sessions, err = suite.svc.Sessions(context.Background(), userB.ID, "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func (suite *AuthServiceTestSuite) TestTerminateOtherSession() {
	t := suite.T()
	user, current := suite.register("riley")

	other, err := suite.svc.Issue(context.Background(), user.ID, "10.0.0.2", "phone")
	require.NoError(t, err)

	err = suite.svc.Terminate(context.Background(), user.ID, other.SessionID, current.SessionID)
	require.NoError(t, err)

	_, err = suite.svc.Rotate(context.Background(), other.RefreshToken, "", "")
	assert.ErrorIs(t, err, apperrors.SessionInvalid())

	// The presented session survives
	_, err = suite.svc.Rotate(context.Background(), current.RefreshToken, "", "")
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestCannotTerminateCurrentSession() {
	t := suite.T()
	user, current := suite.register("riley")

	err := suite.svc.Terminate(context.Background(), user.ID, current.SessionID, current.SessionID)
	assert.ErrorIs(t, err, apperrors.CannotTerminateCurrentSession())
}

func (suite *AuthServiceTestSuite) TestTerminateSomeoneElsesSession() {
	t := suite.T()
	_, aliceSession := suite.register("alice")
	bob, bobSession := suite.register("bob")

	// Bob naming Alice's session id hits the (id, user_id) scope and
	// comes back as not-found, indistinguishable from a bogus id.
	err := suite.svc.Terminate(context.Background(), bob.ID, aliceSession.SessionID, bobSession.SessionID)
	assert.ErrorIs(t, err, apperrors.SessionNotFound())

	_, err = suite.svc.Rotate(context.Background(), aliceSession.RefreshToken, "", "")
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestTerminateUnknownSession() {
	t := suite.T()
	user, current := suite.register("riley")

	err := suite.svc.Terminate(context.Background(), user.ID, "no-such-session", current.SessionID)
	assert.ErrorIs(t, err, apperrors.SessionNotFound())
}

func (suite *AuthServiceTestSuite) TestSweepExpired() {
	t := suite.T()
	user, live := suite.register("riley")

	expired, err := suite.svc.Issue(context.Background(), user.ID, "", "")
	require.NoError(t, err)
	err = suite.db.Model(&models.Session{}).
		Where("id = ?", expired.SessionID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error
	require.NoError(t, err)

	count, err := SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var remaining []models.Session
	require.NoError(t, suite.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, live.SessionID, remaining[0].ID)

	// Nothing left to sweep
	count, err = SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
