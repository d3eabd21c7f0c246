package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ripplefeed/backend/internal/logger"
)

type collector struct {
	mu     sync.Mutex
	events []CommentEvent
}

func (c *collector) handle(evt CommentEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *collector) all() []CommentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CommentEvent(nil), c.events...)
}

func TestBusDeliversInOrder(t *testing.T) {
	logger.InitializeForTests()

	bus := NewBus(4)
	col := &collector{}
	bus.Subscribe(col.handle)
	bus.Start()

	bus.Publish(CommentEvent{Kind: CommentCreated, PostID: "p1"})
	bus.Publish(CommentEvent{Kind: CommentCreated, PostID: "p2"})
	bus.Publish(CommentEvent{Kind: CommentDeleted, PostID: "p1"})
	bus.Stop()

	got := col.all()
	assert.Equal(t, []CommentEvent{
		{Kind: CommentCreated, PostID: "p1"},
		{Kind: CommentCreated, PostID: "p2"},
		{Kind: CommentDeleted, PostID: "p1"},
	}, got)
}

func TestBusFansOutToAllSubscribers(t *testing.T) {
	logger.InitializeForTests()

	bus := NewBus(4)
	first := &collector{}
	second := &collector{}
	bus.Subscribe(first.handle)
	bus.Subscribe(second.handle)
	bus.Start()

	bus.Publish(CommentEvent{Kind: CommentCreated, PostID: "p1"})
	bus.Stop()

	assert.Len(t, first.all(), 1)
	assert.Len(t, second.all(), 1)
}

func TestBusDrainsQueueOnStop(t *testing.T) {
	logger.InitializeForTests()

	bus := NewBus(16)
	col := &collector{}
	bus.Subscribe(col.handle)
	bus.Start()

	for i := 0; i < 10; i++ {
		bus.Publish(CommentEvent{Kind: CommentCreated, PostID: "p"})
	}
	bus.Stop()

	assert.Len(t, col.all(), 10)
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	logger.InitializeForTests()

	bus := NewBus(1)
	bus.Start()
	bus.Stop()

	// Must return immediately instead of blocking on a dead loop
	bus.Publish(CommentEvent{Kind: CommentDeleted, PostID: "p1"})
}
