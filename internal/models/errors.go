package models

import "errors"

// Доменные ошибки. Вызывающие стороны различают их через errors.Is:
// отсутствие вместимости и отсутствие энтайтлмента — восстановимые состояния,
// а не сбои хранилища.
var (
	// ErrNoCapacity — ни один активный сервер не примет нового пользователя.
	// Энтайтлмент при этом остаётся в силе, попытку можно повторить позже.
	ErrNoCapacity = errors.New("no access server capacity")

	// ErrNoEntitlement — у пользователя нет записи в леджере.
	ErrNoEntitlement = errors.New("entitlement not found")

	// ErrUnknownPlan — код тарифа отсутствует в каталоге.
	ErrUnknownPlan = errors.New("unknown plan code")
)
