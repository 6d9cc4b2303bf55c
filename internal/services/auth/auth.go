// Package auth содержит логику аутентификации операторов административного API.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/access-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/access-engine/internal/lib/password"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminRepository описывает контракт для работы с администраторами в базе данных.
type AdminRepository interface {
	// GetAdminByUsername возвращает администратора по имени или ошибку, если не найден.
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)

	// CreateAdmin сохраняет нового администратора и возвращает его ID.
	CreateAdmin(ctx context.Context, username, passwordHash string) (int64, error)
}

// AuthService отвечает за вход администраторов и выдачу JWT.
type AuthService struct {
	admins   AdminRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(admins AdminRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		admins:   admins,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Login проверяет пароль администратора и генерирует JWT с ролью "admin".
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, error) {
	const op = "services.auth.Login"

	admin, err := s.admins.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(admin.PasswordHash, rawPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(admin.Username, "admin")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// EnsureAdmin создает администратора из конфигурации, если его еще нет.
// Вызывается при старте приложения, повторный запуск ничего не меняет.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, rawPassword string) error {
	const op = "services.auth.EnsureAdmin"

	_, err := s.admins.GetAdminByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.admins.CreateAdmin(ctx, username, hashed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("bootstrap admin created", slog.String("username", username), slog.Int64("id", id))
	return nil
}
