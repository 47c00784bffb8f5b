package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// DefaultAMQPQueue is used when no queue name is configured.
const DefaultAMQPQueue = "netmonitor.automation"

// AMQPNotifier publishes envelopes to a durable RabbitMQ queue through the
// default exchange.
type AMQPNotifier struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *slog.Logger
	now    func() time.Time
}

func NewAMQPNotifier(url, queue string, logger *slog.Logger) (*AMQPNotifier, error) {
	if queue == "" {
		queue = DefaultAMQPQueue
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQPNotifier{
		conn:   conn,
		ch:     ch,
		queue:  q.Name,
		logger: logger.With("component", "amqp_notifier"),
		now:    time.Now,
	}, nil
}

func (a *AMQPNotifier) Name() string { return "amqp" }

func (a *AMQPNotifier) Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult {
	result := domain.DeliveryResult{Sink: a.Name()}

	body, err := NewEnvelope(action, payload, a.now()).Marshal()
	if err != nil {
		result.Err = fmt.Errorf("encode envelope: %w", err)
		return result
	}

	// Channels are not safe for concurrent publishers.
	a.mu.Lock()
	err = a.ch.Publish(
		"",      // exchange
		a.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    a.now(),
			Type:         string(action),
			Priority:     amqpPriority(action.Priority()),
			Body:         body,
		})
	a.mu.Unlock()
	if err != nil {
		result.Err = fmt.Errorf("publish to %s: %w", a.queue, err)
		return result
	}

	a.logger.Debug("Sent message to queue", "queue", a.queue, "action", action)
	result.Delivered = true
	return result
}

func (a *AMQPNotifier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ch.Close()
	return a.conn.Close()
}

func amqpPriority(p domain.Priority) uint8 {
	switch p {
	case domain.PriorityCritical:
		return 9
	case domain.PriorityHigh:
		return 6
	case domain.PriorityMedium:
		return 3
	default:
		return 0
	}
}
