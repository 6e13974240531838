// Package amqp carries booking events over a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// typed is implemented by payloads that know their event type.
type typed interface {
	EventType() string
}

type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish has the same shape as the Kafka producer: topic becomes the
// routing key prefix and key travels as the message id.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	rk := RoutingKey(topic, payload)
	err = p.ch.PublishWithContext(ctx, p.exchange, rk, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", rk, err)
	}
	log.Printf("amqp: published exchange=%s key=%s", p.exchange, rk)
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func RoutingKey(topic string, payload interface{}) string {
	if t, ok := payload.(typed); ok && t.EventType() != "" {
		return topic + "." + t.EventType()
	}
	return topic
}
