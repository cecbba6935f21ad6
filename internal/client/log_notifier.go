package client

import (
	"context"

	"github.com/rs/zerolog"

	"workorder-service/internal/service"
)

// LogNotifier writes notifications to the log. It stands in for the NATS
// publisher when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, notification service.Notification) error {
	n.log.Info().
		Str("event", notification.Event).
		Str("recipient", notification.Recipient.Email).
		Str("subject", notification.Subject).
		Str("resource_id", notification.EntityID).
		Msg("notification (not delivered, no broker configured)")
	return nil
}
