package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/rabbitmq"
)

const (
	defaultExchange   = "notifications"
	defaultQueue      = "notification_queue"
	defaultRoutingKey = "notification.*"
	consumerTag       = "marketplace-notifications"

	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Broker is the subset of the RabbitMQ client the consumer needs
type Broker interface {
	DeclareExchange(name, kind string) error
	DeclareQueue(name string) error
	BindQueue(queue, routingKey, exchange string) error
	SetPrefetch(count int) error
	Consume(queue, consumerTag string) (<-chan rabbitmq.Message, error)
	Close() error
}

// Dialer opens a new broker connection
type Dialer func() (Broker, error)

// Delivery settles one message
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Redelivered() bool
}

// Processor handles one decoded event
type Processor interface {
	ProcessEvent(ctx context.Context, event *domain.Event) error
}

// Options names the topology the consumer binds to
type Options struct {
	Exchange   string
	Queue      string
	RoutingKey string
	Prefetch   int
}

// EventConsumer consumes events from RabbitMQ and reconnects when the
// broker goes away
type EventConsumer struct {
	dial      Dialer
	processor Processor
	opts      Options
	log       *logger.Logger
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(dial Dialer, processor Processor, opts Options, log *logger.Logger) *EventConsumer {
	if opts.Exchange == "" {
		opts.Exchange = defaultExchange
	}
	if opts.Queue == "" {
		opts.Queue = defaultQueue
	}
	if opts.RoutingKey == "" {
		opts.RoutingKey = defaultRoutingKey
	}
	return &EventConsumer{
		dial:      dial,
		processor: processor,
		opts:      opts,
		log:       log,
	}
}

// Start consumes until ctx is done. A lost connection is redialed with
// exponential backoff.
func (c *EventConsumer) Start(ctx context.Context) error {
	backoff := minBackoff
	for {
		consumed, err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if consumed {
			backoff = minBackoff
		}
		if err != nil {
			c.log.Error("Event consumer stopped", "error", err, "retry_in", backoff)
		} else {
			c.log.Warn("Event stream closed", "retry_in", backoff)
		}
		metrics.ConsumerRestarts.Inc()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// consumeOnce runs one connection lifetime. consumed reports whether at
// least one message was received.
func (c *EventConsumer) consumeOnce(ctx context.Context) (consumed bool, err error) {
	broker, err := c.dial()
	if err != nil {
		return false, err
	}
	defer broker.Close()

	if err := c.setup(broker); err != nil {
		return false, err
	}

	messages, err := broker.Consume(c.opts.Queue, consumerTag)
	if err != nil {
		return false, err
	}
	c.log.Info("Starting event consumer", "queue", c.opts.Queue, "routing_key", c.opts.RoutingKey)

	for {
		select {
		case <-ctx.Done():
			return consumed, nil
		case msg, ok := <-messages:
			if !ok {
				return consumed, nil
			}
			consumed = true
			c.handle(ctx, msg.Body, &msg)
		}
	}
}

func (c *EventConsumer) setup(broker Broker) error {
	if err := broker.DeclareExchange(c.opts.Exchange, "topic"); err != nil {
		return err
	}
	if err := broker.DeclareQueue(c.opts.Queue); err != nil {
		return err
	}
	if err := broker.BindQueue(c.opts.Queue, c.opts.RoutingKey, c.opts.Exchange); err != nil {
		return err
	}
	if c.opts.Prefetch > 0 {
		return broker.SetPrefetch(c.opts.Prefetch)
	}
	return nil
}

// handle decodes and processes one message. Events that can never succeed
// are dropped; other failures are requeued once.
func (c *EventConsumer) handle(ctx context.Context, body []byte, d Delivery) {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.log.Error("Failed to unmarshal event", "error", err)
		metrics.EventsConsumed.WithLabelValues("unknown", "invalid").Inc()
		_ = d.Nack(false, false)
		return
	}

	err := c.processor.ProcessEvent(ctx, &event)
	switch {
	case err == nil:
		metrics.EventsConsumed.WithLabelValues(string(event.Type), "processed").Inc()
		_ = d.Ack(false)
	case errors.IsValidation(err):
		c.log.Warn("Dropping invalid event", "error", err, "event_id", event.ID, "type", event.Type)
		metrics.EventsConsumed.WithLabelValues(string(event.Type), "invalid").Inc()
		_ = d.Nack(false, false)
	case d.Redelivered():
		c.log.Error("Event failed after redelivery, dropping", "error", err, "event_id", event.ID, "type", event.Type)
		metrics.EventsConsumed.WithLabelValues(string(event.Type), "dropped").Inc()
		_ = d.Nack(false, false)
	default:
		c.log.Error("Failed to process event", "error", err, "event_id", event.ID, "type", event.Type)
		metrics.EventsConsumed.WithLabelValues(string(event.Type), "requeued").Inc()
		_ = d.Nack(false, true)
	}
}
