package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"wheres-my-lunch/internal/config"
	"wheres-my-lunch/pkg/logger"
	"wheres-my-lunch/pkg/models"
)

const (
	// CommitExchange receives one event per confirmed order walk; the
	// notification subscriber fans them out to the administrator.
	CommitExchange = "lunch_orders_fanout"
)

type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *logger.Logger
}

func Connect(cfg *config.RabbitMQ, log *logger.Logger) (*Broker, error) {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.VHost)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		CommitExchange, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Info("startup", "rabbitmq_connected", "Connected to RabbitMQ")
	return &Broker{conn: conn, channel: channel, log: log}, nil
}

// PublishCommit announces a committed order. Delivery is best-effort:
// the commit has already been persisted, so a broker failure is logged
// and never surfaced to the user.
func (b *Broker) PublishCommit(ctx context.Context, msg models.OrderCommittedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal commit message: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return b.channel.PublishWithContext(publishCtx,
		CommitExchange, // exchange
		"",             // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.CommittedAt,
			Body:         body,
		},
	)
}

// Consume binds an exclusive server-named queue to the commit exchange
// and returns the delivery stream.
func (b *Broker) Consume() (<-chan amqp.Delivery, error) {
	q, err := b.channel.QueueDeclare(
		"",    // name (let server generate)
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = b.channel.QueueBind(q.Name, "", CommitExchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := b.channel.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming messages: %w", err)
	}
	return deliveries, nil
}

func (b *Broker) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
