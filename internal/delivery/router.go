// Package delivery fans freshly appended messages out to connected
// recipients. Two strategies exist: the direct router pushes straight to
// sessions on this process, the relay router goes through Redis pub/sub so
// every process in the deployment can deliver to its own sessions.
//
// Delivery is best effort everywhere: a recipient that cannot be reached is
// logged and skipped, the message itself is already durable in the log.
package delivery

import (
	"context"

	"taskmanager/backend/internal/models"
)

// Router publishes an appended message toward its recipients.
type Router interface {
	Publish(ctx context.Context, msg *models.MessageView) error
}

// RecipientSource enumerates the user IDs a conversation's messages go to.
// The chat service implements this.
type RecipientSource interface {
	Recipients(conversationID uint) ([]uint, error)
}

// LocalSender pushes payloads to websocket sessions on this process. The hub
// implements this.
type LocalSender interface {
	SendToUser(userID uint, payload []byte) int
}

// LocalBroadcaster pushes a payload to every session on this process. The hub
// implements this too; it is the relay mode's public channel.
type LocalBroadcaster interface {
	Broadcast(payload []byte) int
}

// Broker is the pub/sub slice of the message broker the relay strategy rides
// on. NewRedisBroker adapts the shared Redis client to it.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) Subscription
}

// Subscription is a live topic subscription. Messages is closed when the
// subscription ends.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Envelope is the wire shape both routers emit: the frame type matches the
// websocket protocol so clients handle pushed and replied messages the same
// way.
type Envelope struct {
	Type    string             `json:"type"`
	Payload models.MessageView `json:"payload"`
}
