package models

import "time"

// NotificationRecord фиксирует отправленное напоминание. Уникальность тройки
// (user_uid, milestone, for_date) — единственный механизм дедупликации:
// записи не удаляются и не протухают.
type NotificationRecord struct {
	ID        int64
	UserUID   string
	Milestone string
	ForDate   time.Time
	SentAt    time.Time
}

// Reminder — сообщение для конвейера доставки уведомлений.
// Публикуется нотификатором в RabbitMQ и потребляется sender-воркером.
type Reminder struct {
	UserUID   string    `json:"user_uid"`
	Label     string    `json:"label"`
	Email     string    `json:"email"`
	Milestone string    `json:"milestone"`
	ExpiresAt time.Time `json:"expires_at"`
}
