package models

import "time"

// Entitlement хранит текущий срок действия доступа пользователя.
// На пользователя существует не более одной записи; отмена не удаляет строку,
// а выставляет expires_at в прошлое, сохраняя историю для следующего продления.
type Entitlement struct {
	UserUID   string    // Идентификатор пользователя, уникальный ключ
	PlanCode  string    // Код тарифа последнего продления
	ExpiresAt time.Time // Момент окончания доступа
	UpdatedAt time.Time // Момент последнего изменения записи
}

// AccessStatus — ответ на запрос статуса доступа.
type AccessStatus struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	PlanCode  string     `json:"plan_code,omitempty"`
	ServerID  *int64     `json:"server_id,omitempty"`
}
