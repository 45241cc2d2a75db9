package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tgrelay/pkg/backend"
	"tgrelay/pkg/bus"
	"tgrelay/pkg/channel"
)

const (
	// UnknownSenderID stands in for a missing sender so the message still reaches
	// the bot service, which then decides authorization.
	UnknownSenderID   = "unknown"
	UnknownSenderName = "Unknown"

	messagePreviewLimit = 50
)

// Action is what the dispatcher did with one inbound message.
type Action string

const (
	ActionIgnored    Action = "ignored"
	ActionReplied    Action = "replied"
	ActionSilentDrop Action = "silent_drop"
	ActionFailed     Action = "failed"
)

// Sender forwards one message to the bot service and classifies the answer.
type Sender interface {
	Send(ctx context.Context, senderID string, senderName string, text string) (backend.Outcome, error)
}

// Dispatcher turns inbound messages into bot service requests and maps each
// classified outcome to at most one reply.
type Dispatcher struct {
	sender  Sender
	replier channel.Replier
	bus     *bus.MessageBus
	log     *slog.Logger
}

func NewDispatcher(sender Sender, replier channel.Replier, mb *bus.MessageBus, log *slog.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("backend sender is required")
	}
	if replier == nil {
		return nil, errors.New("replier is required")
	}
	if mb == nil {
		return nil, errors.New("message bus is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		sender:  sender,
		replier: replier,
		bus:     mb,
		log:     log.With("component", "relay.dispatcher"),
	}, nil
}

// Run consumes the bus one message at a time until ctx is done or the bus closes.
// Each message is handled under a context detached from ctx, so stopping the loop
// never cuts off a backend call that is already in flight.
func (d *Dispatcher) Run(ctx context.Context) {
	dispatchCtx := context.WithoutCancel(ctx)

	for {
		msg, ok := d.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		d.Dispatch(dispatchCtx, msg)
	}
}

// Dispatch handles one message. Errors and panics stop at this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, msg bus.InboundMessage) (action Action) {
	if strings.TrimSpace(msg.Text) == "" {
		return ActionIgnored
	}

	senderID := senderID(msg)
	senderName := senderName(msg)
	log := d.log.With("sender_id", senderID, "sender_name", senderName, "chat_id", msg.ChatID)

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error("Panic while processing message", "panic", fmt.Sprint(recovered))
			action = ActionFailed
			d.publish(ctx, bus.EventMessageFailed, msg, senderID, fmt.Errorf("panic: %v", recovered))
		}
	}()

	log.Info("Received message", "update_id", msg.UpdateID, "content", backend.Preview(msg.Text, messagePreviewLimit))
	d.publish(ctx, bus.EventMessageReceived, msg, senderID, nil)

	outcome, err := d.sender.Send(ctx, senderID, senderName, msg.Text)
	if err != nil {
		log.Error("Error processing message", "error", err)
		d.publish(ctx, bus.EventMessageFailed, msg, senderID, err)
		return ActionFailed
	}

	switch outcome.Kind {
	case backend.KindUnauthorized:
		log.Info("Sender not whitelisted, ignoring silently")
		d.publish(ctx, bus.EventMessageUnauthorized, msg, senderID, nil)
		return ActionSilentDrop

	case backend.KindHandled, backend.KindNotRecognized:
		if !outcome.ShouldReply() {
			break
		}
		if err := d.replier.SendText(ctx, msg.ChatID, outcome.Reply); err != nil {
			log.Error("Failed to send reply", "outcome", outcome.Kind.String(), "error", err)
			d.publish(ctx, bus.EventMessageFailed, msg, senderID, err)
			return ActionFailed
		}

		if outcome.Kind == backend.KindHandled {
			log.Info("Sent response", "reply", backend.Preview(outcome.Reply, messagePreviewLimit))
			d.publish(ctx, bus.EventMessageHandled, msg, senderID, nil)
		} else {
			log.Info("Message not recognized as expense or command, sent help message")
			d.publish(ctx, bus.EventMessageNotRecognized, msg, senderID, nil)
		}
		return ActionReplied
	}

	err = outcome.Err
	if err == nil {
		err = fmt.Errorf("unclassified outcome %q", outcome.Kind.String())
	}
	log.Error("Message not processed", "outcome", outcome.Kind.String(), "error", err)
	d.publish(ctx, bus.EventMessageFailed, msg, senderID, err)
	return ActionFailed
}

func (d *Dispatcher) publish(ctx context.Context, eventType bus.EventType, msg bus.InboundMessage, senderID string, err error) {
	event := bus.Event{
		Type:     eventType,
		UpdateID: msg.UpdateID,
		ChatID:   msg.ChatID,
		SenderID: senderID,
	}
	if err != nil {
		event.Error = err.Error()
	}

	d.bus.PublishEvent(ctx, event)
}

func senderID(msg bus.InboundMessage) string {
	if id := strings.TrimSpace(msg.SenderID); id != "" {
		return id
	}
	return UnknownSenderID
}

// senderName prefers the handle, then the given name.
func senderName(msg bus.InboundMessage) string {
	if name := strings.TrimSpace(msg.Username); name != "" {
		return name
	}
	if name := strings.TrimSpace(msg.FirstName); name != "" {
		return name
	}
	return UnknownSenderName
}
