package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// ExtendEntitlement продлевает доступ пользователя на durationDays дней
// и возвращает новый срок. База продления — максимум из текущего срока
// и настоящего момента, поэтому последовательные покупки складываются,
// а истёкший доступ отсчитывается заново от текущего момента.
//
// Upsert выполняется одним запросом: конкурентные продления одного
// пользователя сериализуются блокировкой его строки и не теряются.
func (s *Storage) ExtendEntitlement(ctx context.Context, userUID, planCode string, durationDays int) (time.Time, error) {
	const op = "storage.ExtendEntitlement"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO entitlements (user_uid, plan_code, expires_at, updated_at)
			  VALUES ($1, $2, now() + make_interval(days => $3), now())
			  ON CONFLICT (user_uid) DO UPDATE
			  SET plan_code = EXCLUDED.plan_code,
			      expires_at = GREATEST(entitlements.expires_at, now()) + make_interval(days => $3),
			      updated_at = now()
			  RETURNING expires_at`
	var expiresAt time.Time
	err := s.DB.QueryRowContext(ctx, query, userUID, planCode, durationDays).Scan(&expiresAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return expiresAt, nil
}

// CancelEntitlement выставляет срок доступа в прошлое, строка не удаляется.
// Возвращает количество изменённых строк: 0 означает, что доступа не было.
func (s *Storage) CancelEntitlement(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CancelEntitlement"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE entitlements
			  SET expires_at = now() - interval '1 second',
			      updated_at = now()
			  WHERE user_uid = $1`
	result, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// GetEntitlement возвращает запись доступа пользователя либо
// models.ErrNoEntitlement, если доступ ни разу не выдавался.
func (s *Storage) GetEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	const op = "storage.GetEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, plan_code, expires_at, updated_at
			  FROM entitlements
			  WHERE user_uid = $1`
	e := &models.Entitlement{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	if err := row.Scan(&e.UserUID, &e.PlanCode, &e.ExpiresAt, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNoEntitlement)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}
