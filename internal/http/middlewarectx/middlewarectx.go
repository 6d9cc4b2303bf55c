// Package middlewarectx содержит HTTP middleware движка доступа:
// проверку identity-токена внешнего провайдера, проверку JWT администратора
// и ограничение частоты запросов. Проверенные данные кладутся в контекст
// запроса под типизированными ключами.
package middlewarectx

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID — ключ для внешнего идентификатора пользователя в контексте
	UserUID Key = "user_uid"
	// UserLabel — ключ для отображаемого имени пользователя в контексте
	UserLabel Key = "user_label"
	// AdminUser — ключ для имени администратора в контексте
	AdminUser Key = "admin_user"
	// Role — ключ для роли в контексте
	Role Key = "role"
)
