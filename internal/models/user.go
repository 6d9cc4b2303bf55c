// Package models содержит доменные структуры движка доступа:
// пользователей, энтайтлменты, серверы доступа, аллокации, покупки
// и записи об отправленных уведомлениях.
package models

import "time"

// User представляет пользователя, пришедшего от внешнего провайдера идентификации.
// Запись создаётся при первой успешной проверке identity-токена и никогда не удаляется.
type User struct {
	UID       string    // Внешний стабильный идентификатор пользователя
	Label     string    // Отображаемое имя из identity-токена
	Email     string    // Электронная почта для уведомлений (может быть пустой)
	CreatedAt time.Time // Дата первой регистрации в системе
}

// Identity — данные, извлечённые из проверенного identity-токена.
type Identity struct {
	UserUID string
	Label   string
	Email   string
}
