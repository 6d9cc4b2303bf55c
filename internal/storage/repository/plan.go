package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// UpsertPlan записывает тариф каталога и помечает его активным.
func (s *Storage) UpsertPlan(ctx context.Context, plan models.Plan) error {
	const op = "storage.UpsertPlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO plans (code, label, duration_days, price_kopecks, currency, active, updated_at)
			  VALUES ($1, $2, $3, $4, $5, true, now())
			  ON CONFLICT (code) DO UPDATE
			  SET label = EXCLUDED.label,
			      duration_days = EXCLUDED.duration_days,
			      price_kopecks = EXCLUDED.price_kopecks,
			      currency = EXCLUDED.currency,
			      active = true,
			      updated_at = now()`
	_, err := s.DB.ExecContext(ctx, query,
		plan.Code, plan.Label, plan.DurationDays, plan.PriceKopecks, plan.Currency)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeactivateMissingPlans помечает неактивными тарифы, которых нет в списке.
// Строки не удаляются: на коды тарифов ссылаются доступы и покупки.
// Возвращает количество изменённых строк.
func (s *Storage) DeactivateMissingPlans(ctx context.Context, codes []string) (int, error) {
	const op = "storage.DeactivateMissingPlans"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE plans
			  SET active = false,
			      updated_at = now()
			  WHERE active AND code <> ALL($1)`
	result, err := s.DB.ExecContext(ctx, query, codes)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// GetCatalogVersion возвращает версию сохранённого каталога тарифов,
// пустая строка означает, что каталог ещё не записывался.
func (s *Storage) GetCatalogVersion(ctx context.Context) (string, error) {
	const op = "storage.GetCatalogVersion"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT version FROM plan_catalog WHERE id = 1`
	var version string
	err := s.DB.QueryRowContext(ctx, query).Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return version, nil
}

// SetCatalogVersion записывает версию применённого каталога тарифов.
func (s *Storage) SetCatalogVersion(ctx context.Context, version string) error {
	const op = "storage.SetCatalogVersion"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO plan_catalog (id, version)
			  VALUES (1, $1)
			  ON CONFLICT (id) DO UPDATE
			  SET version = EXCLUDED.version`
	_, err := s.DB.ExecContext(ctx, query, version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
