package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// CreatePurchase регистрирует начатую покупку со статусом pending.
// Повторная регистрация того же order_id ничего не меняет.
// Возвращает true, если строка была создана этим вызовом.
func (s *Storage) CreatePurchase(ctx context.Context, p models.Purchase) (bool, error) {
	const op = "storage.CreatePurchase"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO purchases (order_id, user_uid, plan_code, amount_kopecks, currency, channel, status)
			  VALUES ($1, $2, $3, $4, $5, $6, 'pending')
			  ON CONFLICT (order_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query,
		p.OrderID, p.UserUID, p.PlanCode, p.AmountKopecks, p.Currency, p.Channel)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// ConfirmPurchase атомарно переводит покупку в confirmed. Отсутствующая
// строка создаётся сразу подтверждённой: подтверждение может прийти по
// каналу, который не регистрировал покупку. Уже подтверждённая покупка
// не меняется. Возвращает true, если переход выполнил именно этот вызов.
func (s *Storage) ConfirmPurchase(ctx context.Context, c models.Confirmation) (bool, error) {
	const op = "storage.ConfirmPurchase"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO purchases (order_id, user_uid, plan_code, amount_kopecks, channel, status, confirmed_at)
			  VALUES ($1, $2, $3, $4, $5, 'confirmed', now())
			  ON CONFLICT (order_id) DO UPDATE
			  SET status = 'confirmed',
			      confirmed_at = now()
			  WHERE purchases.status <> 'confirmed'`
	result, err := s.DB.ExecContext(ctx, query,
		c.OrderID, c.UserUID, c.PlanCode, c.AmountKopecks, c.Channel)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// MarkCredited отмечает, что подтверждённая покупка зачислена в доступ.
// Возвращает количество изменённых строк.
func (s *Storage) MarkCredited(ctx context.Context, orderID string) (int, error) {
	const op = "storage.MarkCredited"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE purchases
			  SET credited_at = now()
			  WHERE order_id = $1 AND credited_at IS NULL`
	result, err := s.DB.ExecContext(ctx, query, orderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FailPurchase переводит ожидающую покупку в failed. Подтверждённую покупку
// перевести в failed нельзя. Возвращает количество изменённых строк.
func (s *Storage) FailPurchase(ctx context.Context, orderID string) (int, error) {
	const op = "storage.FailPurchase"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE purchases
			  SET status = 'failed'
			  WHERE order_id = $1 AND status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, orderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListUncreditedPurchases возвращает подтверждённые покупки, зачисление
// которых не отмечено. По ним ремонтный проход повторяет продление.
func (s *Storage) ListUncreditedPurchases(ctx context.Context) ([]*models.Purchase, error) {
	const op = "storage.ListUncreditedPurchases"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, order_id, user_uid, plan_code, amount_kopecks, currency,
			      channel, status, created_at, confirmed_at, credited_at
			  FROM purchases
			  WHERE status = 'confirmed' AND credited_at IS NULL
			  ORDER BY confirmed_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPurchaseByOrderID возвращает покупку по её идемпотентному ключу.
func (s *Storage) GetPurchaseByOrderID(ctx context.Context, orderID string) (*models.Purchase, error) {
	const op = "storage.GetPurchaseByOrderID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, order_id, user_uid, plan_code, amount_kopecks, currency,
			      channel, status, created_at, confirmed_at, credited_at
			  FROM purchases
			  WHERE order_id = $1`
	row := s.DB.QueryRowContext(ctx, query, orderID)
	p, err := scanPurchase(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (*models.Purchase, error) {
	var p models.Purchase
	var confirmedAt, creditedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserUID, &p.PlanCode, &p.AmountKopecks,
		&p.Currency, &p.Channel, &p.Status, &p.CreatedAt, &confirmedAt, &creditedAt); err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		p.ConfirmedAt = &confirmedAt.Time
	}
	if creditedAt.Valid {
		p.CreditedAt = &creditedAt.Time
	}
	return &p, nil
}
