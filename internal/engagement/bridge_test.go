package engagement

import (
	"context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ripplefeed/backend/internal/events"
)

func (suite *EngagementTestSuite) comments(postID string) int64 {
	counts, err := suite.svc.Counts(context.Background(), []PostRef{{ID: postID}}, "")
	require.NoError(suite.T(), err)
	return counts[postID].Comments
}

func (suite *EngagementTestSuite) TestBridgeAppliesCommentDeltas() {
	t := suite.T()
	post := suite.createPost(0)
	suite.store.seedHash(post.ID, 0, 0, 5)

	bus := events.NewBus(8)
	NewCommentCountBridge(suite.svc).Register(bus)
	bus.Start()

	bus.Publish(events.CommentEvent{Kind: events.CommentCreated, PostID: post.ID})
	bus.Publish(events.CommentEvent{Kind: events.CommentCreated, PostID: post.ID})
	bus.Publish(events.CommentEvent{Kind: events.CommentDeleted, PostID: post.ID})

	// Stop drains the queue, so every delta has landed by the time it returns
	bus.Stop()

	assert.Equal(t, int64(6), suite.comments(post.ID))
}

func (suite *EngagementTestSuite) TestBridgeDuplicateDeliveryDrifts() {
	t := suite.T()
	post := suite.createPost(0)
	suite.store.seedHash(post.ID, 0, 0, 0)

	bus := events.NewBus(8)
	NewCommentCountBridge(suite.svc).Register(bus)
	bus.Start()

	// At-least-once delivery: a duplicate is applied twice. The drift is
	// bounded by the entry TTL, after which a cold read recounts.
	evt := events.CommentEvent{Kind: events.CommentCreated, PostID: post.ID}
	bus.Publish(evt)
	bus.Publish(evt)
	bus.Stop()

	assert.Equal(t, int64(2), suite.comments(post.ID))
}

func (suite *EngagementTestSuite) TestBridgeIgnoresColdEntries() {
	t := suite.T()
	post := suite.createPost(0)

	bus := events.NewBus(8)
	NewCommentCountBridge(suite.svc).Register(bus)
	bus.Start()

	bus.Publish(events.CommentEvent{Kind: events.CommentCreated, PostID: post.ID})
	bus.Stop()

	assert.False(t, suite.store.hasHash(post.ID),
		"a bridge delta must not materialize a partial hash")
}

func (suite *EngagementTestSuite) TestBridgeIgnoresUnknownKinds() {
	t := suite.T()
	post := suite.createPost(0)
	suite.store.seedHash(post.ID, 0, 0, 3)

	bus := events.NewBus(8)
	NewCommentCountBridge(suite.svc).Register(bus)
	bus.Start()

	bus.Publish(events.CommentEvent{Kind: "comment.edited", PostID: post.ID})
	bus.Stop()

	assert.Equal(t, int64(3), suite.comments(post.ID))
}
