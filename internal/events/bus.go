package events

import (
	"sync"

	"github.com/ripplefeed/backend/internal/logger"
	"go.uber.org/zap"
)

// Kind names a comment lifecycle transition
type Kind string

const (
	CommentCreated Kind = "comment.created"
	CommentDeleted Kind = "comment.deleted"
)

// CommentEvent is published by the comment CRUD service after its durable
// write commits. Delivery is at-least-once; subscribers must tolerate
// duplicates.
type CommentEvent struct {
	Kind   Kind
	PostID string
}

// Handler consumes one event
type Handler func(CommentEvent)

// Bus is an in-process fan-out bus for comment lifecycle events
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler

	events chan CommentEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewBus creates a bus with a bounded publish buffer
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		events: make(chan CommentEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a handler for all subsequent events.
// Must be called before Start.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Start launches the delivery loop
func (b *Bus) Start() {
	b.wg.Add(1)
	go b.run()
}

// Stop drains nothing further; queued events are still delivered before
// the loop exits.
func (b *Bus) Stop() {
	close(b.done)
	b.wg.Wait()
}

// Publish enqueues an event for delivery. Blocks when the buffer is full
// rather than dropping: producers only publish after a committed write, so
// losing the event would leave the cached comment count stale for a full
// TTL window.
func (b *Bus) Publish(evt CommentEvent) {
	select {
	case b.events <- evt:
	case <-b.done:
		logger.Log.Warn("event bus stopped, dropping event",
			zap.String("kind", string(evt.Kind)),
			logger.WithPostID(evt.PostID),
		)
	}
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case evt := <-b.events:
			b.dispatch(evt)
		case <-b.done:
			// Drain what was queued before shutdown
			for {
				select {
				case evt := <-b.events:
					b.dispatch(evt)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(evt CommentEvent) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
