package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации в обменнике.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationsExchange — direct-обменник конвейера напоминаний.
const NotificationsExchange = "notifications"

// Ключи маршрутизации напоминаний: приближающееся окончание доступа
// и уже истёкший доступ.
const (
	RoutingKeyUpcoming = "reminder.upcoming"
	RoutingKeyExpired  = "reminder.expired"
)

// GetNotificationQueues возвращает очереди конвейера напоминаний.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.upcoming", RoutingKey: RoutingKeyUpcoming},
		{QueueName: "notifications.expired", RoutingKey: RoutingKeyExpired},
	}
}
