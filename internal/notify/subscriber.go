package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"wheres-my-lunch/internal/broker"
	"wheres-my-lunch/pkg/logger"
	"wheres-my-lunch/pkg/models"
)

// Notifier pushes a plain text message to one chat.
type Notifier interface {
	SendText(userID int64, text string) error
}

// Subscriber consumes committed-order events from the broker and tells
// the administrator about each one. It runs as its own --mode so the
// admin feed survives bot restarts.
type Subscriber struct {
	broker   *broker.Broker
	notifier Notifier
	adminID  int64
	log      *logger.Logger
}

func NewSubscriber(b *broker.Broker, notifier Notifier, adminID int64, log *logger.Logger) *Subscriber {
	return &Subscriber{broker: b, notifier: notifier, adminID: adminID, log: log}
}

// Start blocks consuming events until the context is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	deliveries, err := s.broker.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.log.Info("startup", "subscriber_started", "Notification subscriber started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := s.process(delivery.Body); err != nil {
				s.log.Error("", "notify_failed", "Failed to process commit event", err)
			}
		}
	}
}

func (s *Subscriber) process(body []byte) error {
	var msg models.OrderCommittedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to parse commit event: %w", err)
	}

	text := fmt.Sprintf(
		"🆕 *Новый заказ*\n\n"+
			"👤 Сотрудник: `%d`\n"+
			"🧑‍🏫 Инструктор: %s\n"+
			"📅 Период: %s\n"+
			"📊 %d дней, %d обедов",
		msg.UserID, msg.InstructorName, msg.WeekRange, msg.DaysCount, msg.Total)

	return s.notifier.SendText(s.adminID, text)
}
