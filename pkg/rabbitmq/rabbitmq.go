package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"curbside/internal/config"
	"curbside/internal/mylogger"
	"curbside/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// OrderEventsExchange carries every order insert/status change. Fanout:
	// the owner operations view and tracking pushers each bind their own queue.
	OrderEventsExchange = "order_events"

	// OwnerNotificationsQueue is the owner operations view feed.
	OwnerNotificationsQueue = "owner_notifications"
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	log     mylogger.Logger
}

// ConnectRabbitMQ dials the broker and declares the order-events topology.
// Declarations are idempotent, so every service declares on startup.
func ConnectRabbitMQ(cfg *config.RabbitMQ, log mylogger.Logger) (*RabbitMQ, error) {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.VHost)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		OrderEventsExchange, // name
		"fanout",            // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = channel.QueueDeclare(
		OwnerNotificationsQueue, // name
		true,                    // durable
		false,                   // delete when unused
		false,                   // exclusive
		false,                   // no-wait
		nil,                     // arguments
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.QueueBind(OwnerNotificationsQueue, "", OrderEventsExchange, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	log.Action("mb_connected").Info("Connected to RabbitMQ")
	return &RabbitMQ{Conn: conn, Channel: channel, log: log}, nil
}

// PublishOrderEvent broadcasts one order event to all subscribers.
// Delivery is at-least-once; consumers re-fetch full order state.
func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = r.Channel.PublishWithContext(pubCtx,
		OrderEventsExchange, // exchange
		"",                  // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return err
	}

	r.log.Action("order_event_published").Debug("Order event published",
		"order_number", event.OrderNumber, "new_status", event.NewStatus)
	return nil
}

// Consume starts delivering messages from the given queue.
func (r *RabbitMQ) Consume(queue, consumer string) (<-chan amqp.Delivery, error) {
	return r.Channel.Consume(
		queue,    // queue
		consumer, // consumer
		false,    // auto-ack
		false,    // exclusive
		false,    // no-local
		false,    // no-wait
		nil,      // args
	)
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			return err
		}
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}
