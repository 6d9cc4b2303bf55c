package models

import "time"

// Статусы покупки. Переход pending -> confirmed и pending -> failed
// выполняется ровно один раз, повторная доставка подтверждения — no-op.
const (
	PurchasePending   = "pending"
	PurchaseConfirmed = "confirmed"
	PurchaseFailed    = "failed"
)

// Purchase — платёжный ордер. OrderID задаётся вызывающей стороной и служит
// ключом идемпотентности: одна покупка — одно зачисление в леджер.
type Purchase struct {
	ID            int64
	OrderID       string
	UserUID       string
	PlanCode      string
	AmountKopecks int64
	Currency      string
	Channel       string
	Status        string
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	CreditedAt    *time.Time
}

// Confirmation — событие подтверждения оплаты от платёжного канала.
// Каналы доставляют его минимум один раз, возможно многократно и в любом порядке.
type Confirmation struct {
	OrderID       string `json:"order_id" validate:"required"`
	UserUID       string `json:"user_uid" validate:"required"`
	PlanCode      string `json:"plan_code" validate:"required"`
	AmountKopecks int64  `json:"amount_kopecks" validate:"required,gt=0"`
	Channel       string `json:"-"`
}
