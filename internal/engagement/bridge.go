package engagement

import (
	"context"
	"time"

	"github.com/ripplefeed/backend/internal/events"
	"github.com/ripplefeed/backend/internal/logger"
	"go.uber.org/zap"
)

// CommentCountBridge keeps the cached comments counter in step with the
// comment lifecycle by translating bus events into warm-only deltas.
// Delivery is at-least-once with no dedup: a drifted counter converges
// again when the cache entry expires and the next read recounts.
type CommentCountBridge struct {
	svc *Service
}

// NewCommentCountBridge creates the bridge on the counter service
func NewCommentCountBridge(svc *Service) *CommentCountBridge {
	return &CommentCountBridge{svc: svc}
}

// Register subscribes the bridge to comment lifecycle events
func (b *CommentCountBridge) Register(bus *events.Bus) {
	bus.Subscribe(b.handle)
}

func (b *CommentCountBridge) handle(evt events.CommentEvent) {
	var delta int64
	switch evt.Kind {
	case events.CommentCreated:
		delta = 1
	case events.CommentDeleted:
		delta = -1
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := b.svc.ApplyDelta(ctx, evt.PostID, FieldComments, delta, false); err != nil {
		logger.Log.Warn("comment counter delta failed",
			logger.WithPostID(evt.PostID), zap.Error(err))
	}
}
