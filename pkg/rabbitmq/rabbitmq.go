// Package rabbitmq publishes domain events to a topic exchange and consumes
// the order events bound to the order queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// OrderRoutingPattern binds the order queue to every order event.
const OrderRoutingPattern = "order.*"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	mu       sync.Mutex // amqp.Channel is not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// NewClient connects, declares the durable topic exchange and the order
// queue, and binds them.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(format string, err error) (*Client, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fail("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, OrderRoutingPattern, cfg.Exchange, false, nil); err != nil {
		return fail("failed to bind queue: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"exchange": cfg.Exchange,
		"queue":    cfg.Queue,
	}).Info("RabbitMQ client connected")

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
	}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// Event is the envelope of every published message.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

func newPublishing(routingKey string, payload interface{}, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(Event{Type: routingKey, OccurredAt: now.UTC(), Data: payload})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Type:         routingKey,
	}, nil
}

// Publish sends payload as a persistent JSON event with the given routing key.
func (c *Client) Publish(routingKey string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	msg, err := newPublishing(routingKey, payload, time.Now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.channel.Publish(c.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// ConsumeOrderEvents delivers messages from the order queue to handler until
// ctx is cancelled or the channel closes. A handler error requeues the
// message once; a redelivered message that fails again is dropped.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logrus.Warn("RabbitMQ delivery channel closed")
					return
				}
				settle(msg, handler(msg))
			}
		}
	}()

	return nil
}

func settle(msg amqp.Delivery, err error) {
	entry := logrus.WithField("delivery_tag", msg.DeliveryTag)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			entry.WithError(ackErr).Error("Error acking message")
		}
		return
	}

	entry.WithError(err).Warn("Error processing message")
	if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
		entry.WithError(nackErr).Error("Error nacking message")
	}
}

// LogOrderEvent is the default order event handler. It records the event.
func LogOrderEvent(msg amqp.Delivery) error {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("malformed order event: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"type":        event.Type,
		"occurred_at": event.OccurredAt,
		"data":        event.Data,
	}).Info("Received order event")
	return nil
}
