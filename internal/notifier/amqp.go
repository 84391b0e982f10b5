package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// amqpPublisher is the part of *amqp091.Channel used for delivery
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// deliveryRequest is the JSON body published for a relay process to post
type deliveryRequest struct {
	ChannelID   string    `json:"channel_id"`
	Message     Message   `json:"message"`
	RequestedAt time.Time `json:"requested_at"`
}

// AMQPNotifier hands messages to a broker; a separate relay posts them
type AMQPNotifier struct {
	channel  amqpPublisher
	closer   func() error
	exchange string
	now      func() time.Time
}

// NewAMQPNotifier connects to the broker and declares the topic exchange
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	n := newAMQPNotifier(ch, exchange)
	n.closer = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return n, nil
}

func newAMQPNotifier(ch amqpPublisher, exchange string) *AMQPNotifier {
	return &AMQPNotifier{channel: ch, exchange: exchange, now: time.Now}
}

// Deliver publishes a persistent JSON delivery request routed by message kind
func (n *AMQPNotifier) Deliver(ctx context.Context, channelID string, msg Message) error {
	body, err := json.Marshal(deliveryRequest{
		ChannelID:   channelID,
		Message:     msg,
		RequestedAt: n.now().UTC(),
	})
	if err != nil {
		return failed(err)
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		"notification."+string(msg.Kind),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		return failed(fmt.Errorf("publish to %s: %w", n.exchange, err))
	}
	return nil
}

// Close closes the broker channel and connection
func (n *AMQPNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
