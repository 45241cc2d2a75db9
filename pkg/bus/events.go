package bus

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventMessageReceived      EventType = "message_received"
	EventMessageHandled       EventType = "message_handled"
	EventMessageUnauthorized  EventType = "message_unauthorized"
	EventMessageNotRecognized EventType = "message_not_recognized"
	EventMessageFailed        EventType = "message_failed"
)

// Event records what happened to one inbound message.
type Event struct {
	Type     EventType `json:"type"`
	At       time.Time `json:"at"`
	UpdateID int       `json:"update_id,omitempty"`
	ChatID   int64     `json:"chat_id,omitempty"`
	SenderID string    `json:"sender_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// PublishEvent delivers event to every subscriber without blocking. Subscribers whose
// buffer is full miss the event.
func (mb *MessageBus) PublishEvent(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	for _, ch := range mb.eventSubscribers {
		select {
		case ch <- event:
		default:
		}
	}

	return true
}

// SubscribeEvents registers a subscriber. The channel is closed on unsubscribe, when
// ctx is done, or when the bus closes.
func (mb *MessageBus) SubscribeEvents(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	mb.mu.Lock()
	select {
	case <-mb.done:
		mb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := mb.nextEventSubscriberID
	mb.nextEventSubscriberID++
	mb.eventSubscribers[id] = ch
	mb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			mb.mu.Lock()
			defer mb.mu.Unlock()
			if eventCh, ok := mb.eventSubscribers[id]; ok {
				delete(mb.eventSubscribers, id)
				close(eventCh)
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-mb.done:
		}
		unsubscribe()
	}()

	return ch, unsubscribe
}
