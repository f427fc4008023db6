package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
)

type message struct {
	Pattern string      `json:"pattern"`
	ID      string      `json:"id"`
	Data    interface{} `json:"data"`
}

type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes confirmations to a topic exchange.
type AMQPNotifier struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    publishChannel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

func NewAMQPNotifier(amqpURL, exchange, routingKey string, logger *slog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	n := newAMQPNotifier(ch, exchange, routingKey, logger)
	n.conn = conn
	return n, nil
}

func newAMQPNotifier(ch publishChannel, exchange, routingKey string, logger *slog.Logger) *AMQPNotifier {
	if routingKey == "" {
		routingKey = PatternPurchaseConfirmation
	}
	return &AMQPNotifier{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

func (n *AMQPNotifier) SendPurchaseConfirmation(ctx context.Context, email, name, programName string, amount decimal.Decimal, currency string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := message{
		Pattern: PatternPurchaseConfirmation,
		ID:      uuid.NewString(),
		Data:    newPurchaseConfirmation(email, name, programName, amount, currency),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal purchase confirmation: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.Publish(n.exchange, n.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish purchase confirmation: %w", err)
	}

	n.logger.Debug("purchase confirmation published",
		"message_id", msg.ID,
		"exchange", n.exchange,
		"routing_key", n.routingKey)
	return nil
}

func (n *AMQPNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
