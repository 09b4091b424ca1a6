package delivery

import (
	"context"
	"encoding/json"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/shared/observability"
)

// DirectRouter pushes messages straight to sessions registered on this
// process. This is the single-process deployment mode: no broker, no extra
// hop.
type DirectRouter struct {
	recipients RecipientSource
	sender     LocalSender
	metrics    *observability.ChatMetrics
	log        *logger.Logger
}

// NewDirectRouter builds a router that delivers via the local hub.
func NewDirectRouter(recipients RecipientSource, sender LocalSender, metrics *observability.ChatMetrics, log *logger.Logger) *DirectRouter {
	return &DirectRouter{
		recipients: recipients,
		sender:     sender,
		metrics:    metrics,
		log:        log.WithComponent("delivery-direct"),
	}
}

// Publish delivers the message to every participant's live sessions. A
// failure for one recipient never blocks the others; recipients without a
// session simply read the message from history later.
func (r *DirectRouter) Publish(ctx context.Context, msg *models.MessageView) error {
	targets, err := r.recipients.Recipients(msg.ConversationID)
	if err != nil {
		r.metrics.DeliveryFailures.Add(ctx, 1)
		return err
	}

	payload, err := json.Marshal(Envelope{Type: "message", Payload: *msg})
	if err != nil {
		return err
	}

	for _, userID := range targets {
		if n := r.sender.SendToUser(userID, payload); n == 0 {
			r.log.Debug("recipient offline", "user_id", userID, "message_id", msg.ID)
		}
	}
	r.metrics.MessagesPublished.Add(ctx, 1)
	return nil
}
