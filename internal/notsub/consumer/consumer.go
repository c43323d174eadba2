package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"curbside/internal/config"
	"curbside/internal/mylogger"
	"curbside/pkg/models"
	"curbside/pkg/rabbitmq"
)

// Subscriber drains the owner notifications queue and renders each order
// event as an operations-view line. Processing is per-message goroutines
// tracked by a WaitGroup so Stop can wait for in-flight acks.
type Subscriber struct {
	cfg    *config.Config
	mylog  mylogger.Logger
	mb     *rabbitmq.RabbitMQ
	ctx    context.Context
	appCtx context.Context

	mu sync.Mutex
	wg sync.WaitGroup
}

func NewSubscriber(ctx, appCtx context.Context, cfg *config.Config, mylog mylogger.Logger) *Subscriber {
	return &Subscriber{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
	}
}

func (s *Subscriber) Run() error {
	s.mu.Lock()
	mylog := s.mylog.Action("subscriber_started")

	mb, err := rabbitmq.ConnectRabbitMQ(s.cfg.RMQ, s.mylog)
	if err != nil {
		s.mu.Unlock()
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	s.mb = mb
	s.mu.Unlock()

	deliveries, err := s.mb.Consume(rabbitmq.OwnerNotificationsQueue, "")
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", rabbitmq.OwnerNotificationsQueue, err)
	}

	mylog.Info("Notification subscriber is running", "queue", rabbitmq.OwnerNotificationsQueue)
	s.work(deliveries)
	return nil
}

func (s *Subscriber) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down notification subscriber")

	s.wg.Wait()

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
	}

	s.mylog.Action("graceful_shutdown_completed").Info("Notification subscriber shut down gracefully")
	return nil
}

func (s *Subscriber) work(deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-s.ctx.Done():
			s.mylog.Action("work_shutdown").Info("Stopping message consumption")
			return

		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			s.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer s.wg.Done()

				if err := s.processMsg(msg); err != nil {
					s.mylog.Action("process_message_failed").Error("Failed to process order event", err)
					// Malformed payloads are dropped, not requeued:
					// redelivery would just fail the same way.
					if err := msg.Nack(false, false); err != nil {
						s.mylog.Action("nack_failed").Error("Failed to nack message", err)
					}
				}
			}(msg)
		}
	}
}

func (s *Subscriber) processMsg(msg amqp.Delivery) error {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	log := s.mylog.WithGroup("details").With(
		"order_number", event.OrderNumber,
		"new_status", event.NewStatus,
	)
	log.Action("notification_received").Info("Received status update for order")

	fmt.Printf("Order %s: status changed from '%s' to '%s' by %s.\n",
		event.OrderNumber, event.OldStatus, event.NewStatus, event.ChangedBy)

	if err := msg.Ack(false); err != nil {
		return fmt.Errorf("acknowledge message: %w", err)
	}
	return nil
}
