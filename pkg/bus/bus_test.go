package bus

import (
	"context"
	"testing"
	"time"
)

func TestInboundRoundTrip(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	in := InboundMessage{ChatID: 42, SenderID: "111", Username: "alice", Text: "coffee 5"}
	if ok := mb.PublishInbound(context.Background(), in); !ok {
		t.Fatal("expected inbound publish to succeed")
	}

	out, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected inbound consume to succeed")
	}
	if out != in {
		t.Fatalf("consumed %+v, want %+v", out, in)
	}
}

func TestInboundPreservesOrder(t *testing.T) {
	mb := NewMessageBusWithBuffer(3)
	t.Cleanup(mb.Close)

	for _, text := range []string{"one", "two", "three"} {
		if ok := mb.PublishInbound(context.Background(), InboundMessage{Text: text}); !ok {
			t.Fatalf("publish %q failed", text)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		got, ok := mb.ConsumeInbound(context.Background())
		if !ok {
			t.Fatal("expected consume to succeed")
		}
		if got.Text != want {
			t.Fatalf("text = %q, want %q", got.Text, want)
		}
	}
}

func TestPublishInboundBlocksWhenFullUntilContextDone(t *testing.T) {
	mb := NewMessageBusWithBuffer(1)
	t.Cleanup(mb.Close)

	if ok := mb.PublishInbound(context.Background(), InboundMessage{Text: "fills buffer"}); !ok {
		t.Fatal("expected first publish to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if ok := mb.PublishInbound(ctx, InboundMessage{Text: "overflow"}); ok {
		t.Fatal("expected publish to fail once context expires on a full buffer")
	}
}

func TestCloseStopsBusOperations(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()
	mb.Close()

	if ok := mb.PublishInbound(context.Background(), InboundMessage{Text: "hello"}); ok {
		t.Fatal("expected inbound publish to fail after close")
	}
	if _, ok := mb.ConsumeInbound(context.Background()); ok {
		t.Fatal("expected inbound consume to stop after close")
	}
	if ok := mb.PublishEvent(context.Background(), Event{Type: EventMessageHandled}); ok {
		t.Fatal("expected event publish to fail after close")
	}

	select {
	case <-mb.Done():
	default:
		t.Fatal("expected done channel to be closed")
	}
}

func TestContextCancellation(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := mb.PublishInbound(ctx, InboundMessage{Text: "hello"}); ok {
		t.Fatal("expected publish to fail on canceled context")
	}
	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatal("expected consume to fail on canceled context")
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = mb.ConsumeInbound(context.Background())
	}()

	mb.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("consume did not unblock after close")
	}
}

func TestEventFanout(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	eventsA, unsubA := mb.SubscribeEvents(ctx, 1)
	defer unsubA()
	eventsB, unsubB := mb.SubscribeEvents(ctx, 1)
	defer unsubB()

	if ok := mb.PublishEvent(ctx, Event{Type: EventMessageUnauthorized, SenderID: "111"}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	for name, events := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		select {
		case got := <-events:
			if got.Type != EventMessageUnauthorized {
				t.Fatalf("subscriber %s event type = %q, want %q", name, got.Type, EventMessageUnauthorized)
			}
			if got.At.IsZero() {
				t.Fatalf("subscriber %s expected event timestamp", name)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s did not receive event", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublishEvent(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventMessageReceived}); !ok {
		t.Fatal("expected first event publish to succeed")
	}

	start := time.Now()
	if ok := mb.PublishEvent(ctx, Event{Type: EventMessageHandled}); !ok {
		t.Fatal("expected second event publish to succeed")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish event blocked on slow subscriber")
	}

	select {
	case got := <-events:
		if got.Type != EventMessageReceived {
			t.Fatalf("event type = %q, want first event kept", got.Type)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	unsubscribe()
	unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventMessageReceived}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	events, _ := mb.SubscribeEvents(context.Background(), 1)

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not return a closed channel")
	}
}
