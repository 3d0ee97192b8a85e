// Package events carries domain events between modules. Delivery is
// best-effort: handler failures are logged and swallowed, and publishing
// never blocks the mutating request.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Event is one published domain event.
type Event struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	SenderID   string         `json:"sender_id,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher is the only surface mutating code depends on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload map[string]any, senderID string)
}

// Handler consumes events for one topic. At-least-once semantics: a
// handler may observe the same event again after a redelivery.
type Handler func(ctx context.Context, evt Event)

const (
	// workerCount caps concurrent handler execution.
	workerCount = 4
	// queueSize bounds the dispatch backlog; publishes past it are
	// dropped rather than blocking the mutating request.
	queueSize = 256
)

type dispatch struct {
	ctx      context.Context
	evt      Event
	handlers []Handler
}

// Bus is an in-process publish/subscribe dispatcher with an explicit
// lifecycle. A fixed worker pool drains a bounded queue. It replaces any
// process-wide singleton: construct it once at startup and close it on
// shutdown.
type Bus struct {
	log *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	queue   chan dispatch
	workers sync.WaitGroup
}

func NewBus(log *zap.Logger) *Bus {
	b := &Bus{
		log:      log.Named("events"),
		handlers: make(map[string][]Handler),
		queue:    make(chan dispatch, queueSize),
	}
	b.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go b.work()
	}
	return b
}

func (b *Bus) work() {
	defer b.workers.Done()
	for job := range b.queue {
		for _, h := range job.handlers {
			b.deliver(job.ctx, h, job.evt)
		}
	}
}

// Subscribe registers a handler for a topic. Registration after Close is
// ignored.
func (b *Bus) Subscribe(topic string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish enqueues the event for every subscriber of the topic. A full
// queue drops the event with a warning instead of blocking the caller.
func (b *Bus) Publish(ctx context.Context, topic string, payload map[string]any, senderID string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	subscribers := b.handlers[topic]
	if len(subscribers) == 0 {
		return
	}

	evt := Event{
		ID:         ulid.Make().String(),
		Topic:      topic,
		SenderID:   senderID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	// Detach from the request context so an aborted request does not
	// cancel listener side effects.
	job := dispatch{
		ctx:      context.WithoutCancel(ctx),
		evt:      evt,
		handlers: subscribers,
	}

	select {
	case b.queue <- job:
	default:
		b.log.Warn("event queue full, dropping event",
			zap.String("topic", topic),
			zap.String("event_id", evt.ID),
		)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("topic", evt.Topic),
				zap.String("event_id", evt.ID),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, evt)
}

// Close stops accepting events and waits for the workers to drain the
// queue. Close is not safe to call twice.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	// Publishers hold the read lock while enqueueing, so after the
	// write lock above none remain and the queue can be closed.
	close(b.queue)

	done := make(chan struct{})
	go func() {
		b.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
