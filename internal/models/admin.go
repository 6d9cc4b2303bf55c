package models

import "time"

// Admin — учётная запись оператора административного API.
// Хранит bcrypt-хэш пароля, вход выдаёт JWT.
type Admin struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
