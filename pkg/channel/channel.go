package channel

import (
	"context"

	"tgrelay/pkg/bus"
)

// Adapter bridges one chat transport into the relay. Run publishes every received
// message on the bus until ctx is done and returns once receiving has stopped.
type Adapter interface {
	Name() string
	Run(ctx context.Context, mb *bus.MessageBus) error
}

// Replier sends a text reply to a conversation on the chat platform.
type Replier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}
