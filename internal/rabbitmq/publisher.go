package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/access-engine/internal/lib/milestone"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// PublishMessage публикует сообщение в обменник с указанным ключом маршрутизации.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReminderPublisher отправляет напоминания в конвейер доставки.
// Веха определяет ключ маршрутизации и, соответственно, очередь воркера.
type ReminderPublisher struct {
	ch *amqp.Channel
}

// NewReminderPublisher создает ReminderPublisher поверх открытого канала.
func NewReminderPublisher(ch *amqp.Channel) *ReminderPublisher {
	return &ReminderPublisher{ch: ch}
}

// Publish публикует напоминание в обменник notifications.
func (p *ReminderPublisher) Publish(reminder *models.Reminder) error {
	key := RoutingKeyUpcoming
	if reminder.Milestone == string(milestone.Expired) {
		key = RoutingKeyExpired
	}
	return PublishMessage(p.ch, NotificationsExchange, key, reminder)
}
