package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// DefaultNATSSubject prefixes every published subject.
const DefaultNATSSubject = "netmonitor.automation"

// NATSNotifier publishes envelopes to "<subject>.<action>".
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// NewNATSNotifier connects to url. The connection reconnects on its own;
// publishes during an outage are buffered by the client.
func NewNATSNotifier(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nats_notifier")

	nc, err := nats.Connect(url,
		nats.Name("netmonitor"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	logger.Info("Connected to NATS", "url", url, "subject", subject)
	return &NATSNotifier{nc: nc, subject: subject, logger: logger, now: time.Now}, nil
}

func (n *NATSNotifier) Name() string { return "nats" }

func (n *NATSNotifier) Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult {
	result := domain.DeliveryResult{Sink: n.Name()}

	data, err := NewEnvelope(action, payload, n.now()).Marshal()
	if err != nil {
		result.Err = fmt.Errorf("encode envelope: %w", err)
		return result
	}

	subject := n.subject + "." + string(action)
	if err := n.nc.Publish(subject, data); err != nil {
		result.Err = fmt.Errorf("publish %s: %w", subject, err)
		return result
	}

	n.logger.Debug("Published automation event", "subject", subject, "device_id", payload.DeviceID)
	result.Delivered = true
	return result
}

// Close flushes pending messages and closes the connection.
func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
