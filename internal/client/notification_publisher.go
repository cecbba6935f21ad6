package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"workorder-service/internal/service"
)

// Publisher is the part of *nats.Conn the notification publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// NotificationPublisher delivers rendered notifications as JSON events on
// NATS. Subject convention: <prefix>.<event>, e.g.
// notifications.workorders.workorder.assigned. Publish failures are returned.
type NotificationPublisher struct {
	conn    Publisher
	prefix  string
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string            `json:"event_type"`
	RecipientID  string            `json:"recipient_id"`
	Email        string            `json:"email"`
	Name         string            `json:"name,omitempty"`
	Subject      string            `json:"subject"`
	Body         string            `json:"body"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Payload      map[string]string `json:"payload,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

func NewNotificationPublisher(conn Publisher, prefix string, timeout time.Duration, log zerolog.Logger) *NotificationPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationPublisher{
		conn:    conn,
		prefix:  prefix,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
}

func (p *NotificationPublisher) Subject(event string) string {
	if p.prefix == "" {
		return event
	}
	return p.prefix + "." + event
}

// Notify publishes n and waits for the server to acknowledge the flush, bounded
// by the configured timeout or ctx, whichever ends first.
func (p *NotificationPublisher) Notify(ctx context.Context, n service.Notification) error {
	if p.conn == nil {
		return fmt.Errorf("notification: no NATS connection")
	}

	event := NotificationEvent{
		EventType:    n.Event,
		RecipientID:  n.Recipient.UserID.String(),
		Email:        n.Recipient.Email,
		Name:         n.Recipient.Name,
		Subject:      n.Subject,
		Body:         n.Body,
		ResourceType: n.EntityType,
		ResourceID:   n.EntityID,
		Payload:      n.Data,
		OccurredAt:   p.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notification: marshal event: %w", err)
	}

	subject := p.Subject(n.Event)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("notification: publish %s: %w", subject, err)
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("notification: flush %s: %w", subject, err)
	}

	p.log.Debug().
		Str("subject", subject).
		Str("recipient", n.Recipient.Email).
		Str("resource_id", n.EntityID).
		Msg("notification: event published")
	return nil
}

// Connect opens the NATS connection used by the publisher and logs
// connection state changes.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("workorder-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}
