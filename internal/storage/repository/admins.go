package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// CreateAdmin сохраняет учётную запись администратора и возвращает её ID.
func (s *Storage) CreateAdmin(ctx context.Context, username, passwordHash string) (int64, error) {
	const op = "storage.CreateAdmin"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO admins (username, password_hash)
			  VALUES ($1, $2)
			  RETURNING id`
	var newID int64
	if err := s.DB.QueryRowContext(ctx, query, username, passwordHash).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetAdminByUsername возвращает администратора по его username.
func (s *Storage) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	const op = "storage.GetAdminByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, password_hash, created_at
			  FROM admins
			  WHERE username = $1`
	a := &models.Admin{}
	row := s.DB.QueryRowContext(ctx, query, username)

	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}
