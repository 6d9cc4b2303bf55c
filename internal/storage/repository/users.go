package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// UpsertUser сохраняет пользователя из identity-токена. Повторный вызов
// обновляет метку, пустой email не затирает уже известный адрес.
func (s *Storage) UpsertUser(ctx context.Context, user models.User) error {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, label, email)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (uid) DO UPDATE
			  SET label = EXCLUDED.label,
			      email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email
			                   ELSE users.email END`
	_, err := s.DB.ExecContext(ctx, query, user.UID, user.Label, user.Email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, label, email, created_at
			  FROM users
			  WHERE uid = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	if err := row.Scan(&u.UID, &u.Label, &u.Email, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
